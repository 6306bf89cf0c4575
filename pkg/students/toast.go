package students

// ToastLevel is the severity of a notification.
type ToastLevel string

const (
	ToastSuccess ToastLevel = "success"
	ToastError   ToastLevel = "error"
)

// Toast is a short-lived notification shown after a mutation.
type Toast struct {
	Level   ToastLevel `json:"level"`
	Message string     `json:"message"`
}
