// AngelaMos | 2026
// dto.go

package content

import (
	"time"
)

type CreateContentRequest struct {
	Title       string     `json:"title"                  validate:"required,max=300"`
	Body        string     `json:"body"                   validate:"required"`
	Status      string     `json:"status,omitempty"       validate:"omitempty,oneof=draft scheduled published"`
	PublishDate *time.Time `json:"publish_date,omitempty"`
	Tags        []string   `json:"tags,omitempty"         validate:"omitempty,max=50,dive,max=64"`
}

// UpdateContentRequest is a partial patch: nil fields keep their value.
type UpdateContentRequest struct {
	Title       *string    `json:"title,omitempty"        validate:"omitempty,max=300"`
	Body        *string    `json:"body,omitempty"`
	Status      *string    `json:"status,omitempty"       validate:"omitempty,oneof=draft scheduled published"`
	PublishDate *time.Time `json:"publish_date,omitempty"`
	Tags        *[]string  `json:"tags,omitempty"         validate:"omitempty,max=50,dive,max=64"`
}

type CreateInput struct {
	Title       string
	Body        string
	Status      Status
	PublishDate *time.Time
	Tags        []string
}

type Patch struct {
	Title       *string
	Body        *string
	Status      *Status
	PublishDate *time.Time
	Tags        *[]string
}

func (r CreateContentRequest) toInput() CreateInput {
	return CreateInput{
		Title:       r.Title,
		Body:        r.Body,
		Status:      Status(r.Status),
		PublishDate: r.PublishDate,
		Tags:        r.Tags,
	}
}

func (r UpdateContentRequest) toPatch() Patch {
	p := Patch{
		Title:       r.Title,
		Body:        r.Body,
		PublishDate: r.PublishDate,
		Tags:        r.Tags,
	}
	if r.Status != nil {
		s := Status(*r.Status)
		p.Status = &s
	}
	return p
}

type DeleteResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}
