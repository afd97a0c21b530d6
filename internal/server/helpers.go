package server

import (
	"errors"
	"strings"
	"unicode"

	"minisocial/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten means a helper already committed the response; the
// handler returns nil.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter as a positive id. On failure it writes
// a 400 and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam turns "postId" into "post ID".
func humanizeParam(param string) string {
	prefix, ok := strings.CutSuffix(param, "Id")
	if !ok {
		if param == "id" {
			return "ID"
		}
		return param
	}
	var b strings.Builder
	for i, r := range prefix {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String() + " ID"
}

// currentUserID returns the id AuthRequired stored for this request.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// queryUint reads an optional non-negative integer query parameter.
func queryUint(c *fiber.Ctx, key string) (uint, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n := c.QueryInt(key, -1)
	if n < 0 {
		return 0, false
	}
	return uint(n), true
}
