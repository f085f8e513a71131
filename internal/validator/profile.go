package validator

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"profilekeeper/internal/domain"
)

const maxNameLength = 255

func ValidateProfileName(v *Validator, name string) {
	v.Check(name != "", "name", "name is required")
	v.Check(utf8.RuneCountInString(name) <= maxNameLength, "name", "name must be at most 255 characters long")
}

func ValidateProfileUpdate(v *Validator, req domain.UpdateProfileRequest) {
	v.Check(req.ID > 0, "id", "id must be a positive integer")
	ValidateProfileName(v, req.Name)
	v.Check(req.Status.Valid(), "status", `status must be "live" or "lock"`)
	v.Check(IsJSONArray(req.Websites), "websites", "websites must be a JSON array")
	v.Check(IsJSONObject(req.Payments), "payments", "payments must be a JSON object")
	v.Check(IsJSONArray(req.Logs), "logs", "logs must be a JSON array")
}

func IsJSONArray(s string) bool {
	return isJSON(s, '[')
}

func IsJSONObject(s string) bool {
	return isJSON(s, '{')
}

func isJSON(s string, open byte) bool {
	s = strings.TrimSpace(s)
	return s != "" && s[0] == open && json.Valid([]byte(s))
}
