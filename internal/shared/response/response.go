// Package response defines the uniform envelope wrapping every API
// response: {code, success, message, data}.
package response

import (
	"github.com/gin-gonic/gin"

	"keel/internal/shared/errors"
)

// Envelope is the wire shape of every response. Code, Success and
// Message always change together via ApplyStatus; Data is nil until set
// and never cleared afterwards.
type Envelope struct {
	Code    string `json:"code" example:"S00000"`
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"success"`
	Data    any    `json:"data"`
}

// New returns an envelope initialized with the success triple.
func New() *Envelope {
	return &Envelope{
		Code:    errors.Success.Code,
		Success: true,
		Message: errors.Success.Message,
	}
}

// ApplyStatus overwrites the code/success/message triple as one unit.
func (e *Envelope) ApplyStatus(st errors.Status) *Envelope {
	e.Code = st.Code
	e.Success = st.Code == errors.Success.Code
	e.Message = st.Message
	return e
}

// WithMessage overrides only the client-facing message, keeping the
// code/success pairing of the last applied status.
func (e *Envelope) WithMessage(msg string) *Envelope {
	if msg != "" {
		e.Message = msg
	}
	return e
}

// SetData attaches payload data. A nil value is ignored so that data,
// once set, is never cleared.
func (e *Envelope) SetData(data any) *Envelope {
	if data != nil {
		e.Data = data
	}
	return e
}

// Pagination is the page metadata attached to list responses.
type Pagination struct {
	Index  int   `json:"index" example:"1"`
	Limit  int   `json:"limit" example:"10"`
	Offset int   `json:"offset" example:"0"`
	Total  int64 `json:"total" example:"42"`
}

// ListData is the data shape of list endpoints.
type ListData struct {
	Items      []map[string]any `json:"items"`
	Pagination Pagination       `json:"pagination"`
}

// OK writes a success envelope with the given data.
func OK(c *gin.Context, data any) {
	c.JSON(errors.Success.HTTP, New().SetData(data))
}

// Fail writes an error envelope for a catalog status. data may be nil.
func Fail(c *gin.Context, st errors.Status, data any) {
	env := New().ApplyStatus(st)
	if data == nil {
		data = gin.H{}
	}
	env.Data = data
	c.JSON(st.HTTP, env)
}

// Error maps an error to its envelope. AppError details override the
// catalog message; anything else becomes the opaque common error.
func Error(c *gin.Context, err error) {
	if appErr := errors.GetAppError(err); appErr != nil {
		st := appErr.Status
		if st.HTTP == 401 {
			c.Header("WWW-Authenticate", "Bearer")
		}
		env := New().ApplyStatus(st).WithMessage(appErr.ClientMessage())
		env.Data = gin.H{}
		c.JSON(st.HTTP, env)
		return
	}
	Fail(c, errors.CommonError, nil)
}

// AbortWith writes the error envelope and aborts the gin chain.
func AbortWith(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}
