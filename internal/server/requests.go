package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// maxBody caps request bodies; journal lines are short.
const maxBody = 64 << 10

type echoRequest struct {
	Text string `json:"text" validate:"required,max=4000"`
}

type hoardRequest struct {
	Description  string `json:"description" validate:"required,max=500"`
	CooldownDays *int   `json:"cooldown_days" validate:"omitempty,gte=0,lte=3650"`
	OwnerID      string `json:"owner_id" validate:"required,max=128"`
}

type confirmRequest struct {
	Token string `json:"token" validate:"required,max=64"`
}

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v); err != nil {
		return err
	}
	return validate.Struct(v)
}
