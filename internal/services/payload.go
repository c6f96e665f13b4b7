package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Wikid82/warden/internal/models"
)

// Caller describes who is performing an operation.
type Caller struct {
	UserID     uint
	Privileged bool
}

// Anonymous is the caller context for unauthenticated submissions.
func Anonymous() Caller {
	return Caller{}
}

// OptionalOutcome distinguishes an absent outcome from an explicit null.
type OptionalOutcome struct {
	Set   bool
	Value models.Outcome
}

func (o *OptionalOutcome) UnmarshalJSON(data []byte) error {
	if err := o.Value.UnmarshalJSON(data); err != nil {
		return err
	}
	o.Set = true
	return nil
}

// WebsitePayload is the nested website object of a block request body.
type WebsitePayload struct {
	Domain *string `json:"domain"`
}

// BlockRequestPayload is a decoded request body. Nil fields were not supplied.
type BlockRequestPayload struct {
	Description *string         `json:"description"`
	Email       *string         `json:"email"`
	IP          *string         `json:"ip"`
	Outcome     OptionalOutcome `json:"outcome"`
	Website     *WebsitePayload `json:"website"`
}

// WithIP returns a copy of the payload with ip replaced.
func (p BlockRequestPayload) WithIP(ip string) BlockRequestPayload {
	p.IP = &ip
	return p
}

// PayloadFromRequest builds the payload that reproduces r unchanged when
// applied as an update.
func PayloadFromRequest(r *models.BlockRequest) BlockRequestPayload {
	description, email, ip, domain := r.Description, r.Email, r.IP, r.Website.Domain
	return BlockRequestPayload{
		Description: &description,
		Email:       &email,
		IP:          &ip,
		Outcome:     OptionalOutcome{Set: true, Value: r.Outcome},
		Website:     &WebsitePayload{Domain: &domain},
	}
}

// DecodePayload parses a JSON body. An empty body decodes to an empty payload.
// Type mismatches on known fields are reported as field errors; anything that
// is not a JSON object is ErrMalformedPayload.
func DecodePayload(body []byte) (BlockRequestPayload, error) {
	var p BlockRequestPayload
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return p, nil
	}
	if body[0] != '{' {
		return p, ErrMalformedPayload
	}

	err := json.Unmarshal(body, &p)
	if err == nil {
		return p, nil
	}

	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		verr := &ValidationError{}
		verr.add(typeErr.Field, "Incorrect type.")
		return BlockRequestPayload{}, verr
	case errors.Is(err, models.ErrInvalidOutcome):
		verr := &ValidationError{}
		verr.add("outcome", "Must be a valid boolean or null.")
		return BlockRequestPayload{}, verr
	default:
		return BlockRequestPayload{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
}
