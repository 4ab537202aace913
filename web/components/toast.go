package components

// Variant selects a toast's color scheme.
type Variant string

const (
	VariantSuccess Variant = "success"
	VariantError   Variant = "error"
	VariantWarning Variant = "warning"
	VariantInfo    Variant = "info"
)

// ParseVariant maps form values to a Variant, defaulting to success.
func ParseVariant(s string) Variant {
	switch s {
	case "error", "destructive":
		return VariantError
	case "warning":
		return VariantWarning
	case "info":
		return VariantInfo
	}
	return VariantSuccess
}

var variantClasses = map[Variant]string{
	VariantSuccess: "border-green-600 bg-green-50 text-green-900 dark:bg-green-950 dark:text-green-100",
	VariantError:   "border-red-600 bg-red-50 text-red-900 dark:bg-red-950 dark:text-red-100",
	VariantWarning: "border-amber-500 bg-amber-50 text-amber-900 dark:bg-amber-950 dark:text-amber-100",
	VariantInfo:    "border-blue-600 bg-blue-50 text-blue-900 dark:bg-blue-950 dark:text-blue-100",
}

// ToastProps configures Toast.
type ToastProps struct {
	Title       string
	Description string
	Variant     Variant
	// Duration is the auto-dismiss delay in milliseconds; 0 keeps it open.
	Duration    int
	Dismissible bool
	Class       string
}

func toastVariant(v Variant) Variant {
	if _, ok := variantClasses[v]; !ok {
		return VariantSuccess
	}
	return v
}

func toastClass(p ToastProps) string {
	return Class("fixed bottom-4 right-4 z-50 w-80 rounded-lg border-l-4 p-4 shadow-lg", variantClasses[toastVariant(p.Variant)], p.Class)
}
