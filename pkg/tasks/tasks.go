// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"meme-guard-go/internal/model"
)

var validate = validator.New()

// ErrNonRetryable marks a task failure that retrying cannot fix; the consumer
// drops such tasks instead of redelivering them.
var ErrNonRetryable = errors.New("task cannot be retried")

// PostTask represents one post submitted for streaming moderation.
type PostTask struct {
	ID       string `json:"id" validate:"required,max=64"`
	Text     string `json:"text"`
	ImageRef string `json:"img" validate:"required"`
}

// NewPostTask builds a task from an ingested post.
func NewPostTask(p model.Post) PostTask {
	return PostTask{ID: p.ID, Text: p.Text, ImageRef: p.ImageRef}
}

// Validate checks the required fields of a decoded task.
func (t PostTask) Validate() error {
	return validate.Struct(t)
}

// Post converts the task back into the pipeline's post type.
func (t PostTask) Post() model.Post {
	return model.Post{ID: t.ID, Text: t.Text, ImageRef: t.ImageRef}
}
