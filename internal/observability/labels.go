package observability

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// UnmatchedRoute labels requests that reached no registered endpoint.
const UnmatchedRoute = "unmatched"

// RouteLabel returns the registered route pattern for metrics.
// Request paths never become label values; fiber reuses their buffers.
func RouteLabel(c *fiber.Ctx) string {
	r := c.Route()
	if r == nil || r.Path == "" || (r.Method == "USE" && r.Path == "/") {
		return UnmatchedRoute
	}
	return utils.CopyString(r.Path)
}

// MethodLabel maps the request method onto a fixed set of values.
func MethodLabel(c *fiber.Ctx) string {
	switch c.Method() {
	case fiber.MethodGet:
		return fiber.MethodGet
	case fiber.MethodHead:
		return fiber.MethodHead
	case fiber.MethodPost:
		return fiber.MethodPost
	case fiber.MethodPut:
		return fiber.MethodPut
	case fiber.MethodPatch:
		return fiber.MethodPatch
	case fiber.MethodDelete:
		return fiber.MethodDelete
	case fiber.MethodOptions:
		return fiber.MethodOptions
	}
	return "OTHER"
}
