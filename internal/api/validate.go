package api

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

const maxTitleLength = 256

// Validatable is implemented by every request and response shape.
type Validatable interface {
	Validate(path *field.Path) field.ErrorList
}

// Normalizer is implemented by request bodies that canonicalise themselves
// before validation. Normalize must be idempotent.
type Normalizer interface {
	Normalize()
}

// Check normalizes v when it supports it and validates it.
func Check(v Validatable) error {
	if n, ok := v.(Normalizer); ok {
		n.Normalize()
	}
	if errs := v.Validate(field.NewPath("body")); len(errs) > 0 {
		return validationError("", errs)
	}
	return nil
}

// ValidateID checks that id is a canonical 36 character UUID string. The id is
// otherwise opaque.
func ValidateID(id string, path *field.Path) field.ErrorList {
	if id == "" {
		return field.ErrorList{field.Required(path, "")}
	}
	if len(id) != 36 || uuid.Validate(id) != nil {
		return field.ErrorList{field.Invalid(path, id, "must be a UUID")}
	}
	return nil
}

func validateOptionalID(id *string, path *field.Path) field.ErrorList {
	if id == nil {
		return nil
	}
	return ValidateID(*id, path)
}

func validateIDs(ids []string, path *field.Path) field.ErrorList {
	var errs field.ErrorList
	for i, id := range ids {
		errs = append(errs, ValidateID(id, path.Index(i))...)
	}
	return errs
}

func validateTitle(title string, path *field.Path) field.ErrorList {
	if strings.TrimSpace(title) == "" {
		return field.ErrorList{field.Required(path, "")}
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return field.ErrorList{field.TooLong(path, "", maxTitleLength)}
	}
	return nil
}

func validateURL(raw string, path *field.Path) field.ErrorList {
	if strings.TrimSpace(raw) == "" {
		return field.ErrorList{field.Required(path, "")}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return field.ErrorList{field.Invalid(path, raw, "must be an absolute http(s) URL")}
	}
	return nil
}

func validateOptionalURL(raw *string, path *field.Path) field.ErrorList {
	if raw == nil {
		return nil
	}
	return validateURL(*raw, path)
}

func validateEmail(raw string, path *field.Path) field.ErrorList {
	if raw == "" {
		return field.ErrorList{field.Required(path, "")}
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return field.ErrorList{field.Invalid(path, raw, "must be an email address")}
	}
	return nil
}

func validateFilter(raw json.RawMessage, path *field.Path) field.ErrorList {
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return field.ErrorList{field.Invalid(path, string(raw), "must be a JSON object")}
	}
	return nil
}

// validateTitleField checks an update title: absent is fine, null is not.
func validateTitleField(f Field[string], path *field.Path) field.ErrorList {
	if f.IsZero() {
		return nil
	}
	if f.IsNull() {
		return field.ErrorList{field.Required(path, "title cannot be cleared")}
	}
	v, _ := f.Get()
	return validateTitle(v, path)
}

func validateURLField(f Field[string], path *field.Path) field.ErrorList {
	if v, ok := f.Get(); ok {
		return validateURL(v, path)
	}
	return nil
}

func validateIDField(f Field[string], path *field.Path) field.ErrorList {
	if v, ok := f.Get(); ok {
		return ValidateID(v, path)
	}
	return nil
}

func validateIDsField(f Field[[]string], path *field.Path) field.ErrorList {
	if f.IsNull() {
		return field.ErrorList{field.Required(path, "send an empty list to remove every tag")}
	}
	v, _ := f.Get()
	return validateIDs(v, path)
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

func trimField(f *Field[string]) {
	if v, ok := f.Get(); ok {
		*f = Set(strings.TrimSpace(v))
	}
}

// uniqueIDs trims ids and drops duplicates, keeping the first occurrence.
func uniqueIDs(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ValidateRequest checks a call before it reaches the transport.
func ValidateRequest(ep *Endpoint, params map[string]string, query Validatable, body any) error {
	var errs field.ErrorList
	for _, name := range ep.PathParams() {
		path := field.NewPath("path").Child(name)
		value, ok := params[name]
		if !ok || value == "" {
			errs = append(errs, field.Required(path, ""))
			continue
		}
		if _, isID := idParams[name]; isID {
			errs = append(errs, ValidateID(value, path)...)
		}
	}
	if query != nil {
		errs = append(errs, query.Validate(field.NewPath("query"))...)
	}

	bodyPath := field.NewPath("body")
	switch ep.Body {
	case BodyNone:
		if body != nil {
			errs = append(errs, field.Forbidden(bodyPath, "endpoint takes no body"))
		}
	case BodyJSON, BodyMultipart:
		if body == nil {
			errs = append(errs, field.Required(bodyPath, ""))
			break
		}
		if _, isUpload := body.(*Upload); isUpload != (ep.Body == BodyMultipart) {
			errs = append(errs, field.TypeInvalid(bodyPath, fmt.Sprintf("%T", body), "wrong body encoding for endpoint"))
			break
		}
		if n, ok := body.(Normalizer); ok {
			n.Normalize()
		}
		if v, ok := body.(Validatable); ok {
			errs = append(errs, v.Validate(bodyPath)...)
		}
	}
	if len(errs) > 0 {
		return validationError(ep.Name, errs)
	}
	return nil
}

// ValidateResponse decodes raw into dest and validates the result. A body
// that does not match the contract is a validation failure even on 2xx.
func ValidateResponse(ep *Endpoint, raw []byte, dest any) error {
	path := field.NewPath("response")
	if err := json.Unmarshal(raw, dest); err != nil {
		return validationError(ep.Name, field.ErrorList{field.Invalid(path, truncate(string(raw), 120), err.Error())})
	}
	if v, ok := dest.(Validatable); ok {
		if errs := v.Validate(path); len(errs) > 0 {
			return validationError(ep.Name, errs)
		}
	}
	return nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
