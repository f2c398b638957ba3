package users

// Messages returned to callers in envelopes.
const (
	MsgValidationFailed = "Validation failed."

	MsgCreated      = "User created successfully!"
	MsgEmailInUse   = "Email already in use."
	MsgEmailInUseAt = "This email is already registered."
	MsgCreateFailed = "Failed to create user. Please try again."

	MsgUpdated        = "User updated successfully"
	MsgEmailTakenByID = "This email is already used by another user."
	MsgUpdateFailed   = "Failed to update user. Please try again."
	MsgNotFound       = "User not found."

	MsgDeleted      = "User deleted successfully"
	MsgDeleteFailed = "Failed to delete user. Please try again."
)

// FieldErrors maps a field name to its human-readable validation messages.
type FieldErrors map[string][]string

// Add appends a message for field.
func (fe FieldErrors) Add(field, msg string) {
	fe[field] = append(fe[field], msg)
}

// Envelope is the uniform result of a mutating operation.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    any         `json:"data,omitempty"`
	Errors  FieldErrors `json:"errors,omitempty"`

	// Err classifies a failure (ErrValidation, ErrEmailTaken, ErrNotFound,
	// ErrStoreFailure) for transports. It is nil on success.
	Err error `json:"-"`
}

// Succeed builds a success envelope. A nil data value is omitted.
func Succeed(msg string, data any) Envelope {
	return Envelope{Success: true, Message: msg, Data: data}
}

// Fail builds a failure envelope carrying the failure class.
func Fail(msg string, cause error, errs FieldErrors) Envelope {
	if len(errs) == 0 {
		errs = nil
	}
	return Envelope{Message: msg, Errors: errs, Err: cause}
}
