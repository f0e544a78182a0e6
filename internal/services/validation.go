package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Lllllllleong/reportprinter/internal/models"
)

// ErrInvalidRequest marks requests rejected before any work is done.
var ErrInvalidRequest = errors.New("invalid request")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Use JSON tag names for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// normalizeRequest trims req and checks it against its validation tags.
func normalizeRequest(req *models.PrintReportRequest) (models.PrintReportRequest, error) {
	if req == nil {
		return models.PrintReportRequest{}, fmt.Errorf("%w: missing body", ErrInvalidRequest)
	}
	out := models.PrintReportRequest{
		Topic:   strings.TrimSpace(req.Topic),
		Printer: strings.TrimSpace(req.Printer),
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return out, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		fields := make([]string, 0, len(verrs))
		for _, e := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed %s", e.Field(), e.Tag()))
		}
		return out, fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(fields, ", "))
	}
	return out, nil
}
