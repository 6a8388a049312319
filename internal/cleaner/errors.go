package cleaner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
)

// ErrorReason categorizes why a deletion failed
type ErrorReason int

const (
	ErrorPermissionDenied ErrorReason = iota
	ErrorFileInUse
	ErrorFileNotFound
	ErrorIsDirectory
	ErrorInvalidPath
	ErrorUnknown
)

// String returns a human-readable error reason
func (e ErrorReason) String() string {
	switch e {
	case ErrorPermissionDenied:
		return "Permission denied"
	case ErrorFileInUse:
		return "File is in use"
	case ErrorFileNotFound:
		return "File not found"
	case ErrorIsDirectory:
		return "Is a directory"
	case ErrorInvalidPath:
		return "Invalid path"
	case ErrorUnknown:
		return "Unknown error"
	default:
		return "Unspecified error"
	}
}

// DeletionError is a failed removal of one path
type DeletionError struct {
	Path        string
	Reason      ErrorReason
	Original    error
	Retryable   bool
	NeedsPkexec bool
}

// Error renders "path: cause", where cause is the underlying system error
// without the operation prefix os adds.
func (e *DeletionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, cause(e.Original))
}

func (e *DeletionError) Unwrap() error {
	return e.Original
}

// UserMessage returns a user-friendly error message
func (e *DeletionError) UserMessage() string {
	switch e.Reason {
	case ErrorPermissionDenied:
		if e.NeedsPkexec {
			return fmt.Sprintf("Need elevated permissions to delete: %s", e.Path)
		}
		return fmt.Sprintf("Permission denied: %s", e.Path)
	case ErrorFileInUse:
		return fmt.Sprintf("File is being used: %s (close the application and try again)", e.Path)
	case ErrorFileNotFound:
		return fmt.Sprintf("Already deleted: %s", e.Path)
	case ErrorIsDirectory:
		return fmt.Sprintf("Cannot delete directory: %s", e.Path)
	case ErrorInvalidPath:
		return fmt.Sprintf("Invalid or unsafe path: %s (%s)", e.Path, cause(e.Original))
	default:
		return fmt.Sprintf("Error deleting %s: %s", e.Path, cause(e.Original))
	}
}

// InvalidPath wraps a validation failure as a DeletionError
func InvalidPath(path string, err error) *DeletionError {
	return &DeletionError{Path: path, Reason: ErrorInvalidPath, Original: err}
}

// CategorizeError analyzes an error and returns a categorized DeletionError
func CategorizeError(path string, err error) *DeletionError {
	if err == nil {
		return nil
	}

	delErr := &DeletionError{
		Path:     path,
		Original: err,
		Reason:   ErrorUnknown,
	}

	var errno syscall.Errno
	switch {
	case errors.Is(err, fs.ErrNotExist):
		delErr.Reason = ErrorFileNotFound
	case errors.Is(err, fs.ErrPermission):
		delErr.Reason = ErrorPermissionDenied
		delErr.NeedsPkexec = true
	case errors.As(err, &errno):
		switch errno {
		case syscall.EBUSY, syscall.ETXTBSY:
			delErr.Reason = ErrorFileInUse
			delErr.Retryable = true
		case syscall.EISDIR, syscall.ENOTEMPTY:
			delErr.Reason = ErrorIsDirectory
		}
	}

	return delErr
}

// GroupErrors groups deletion errors by reason
func GroupErrors(errs []*DeletionError) map[ErrorReason][]*DeletionError {
	grouped := make(map[ErrorReason][]*DeletionError)
	for _, err := range errs {
		grouped[err.Reason] = append(grouped[err.Reason], err)
	}
	return grouped
}

// cause strips the *os.PathError / *os.LinkError wrapper so messages do not
// repeat the path.
func cause(err error) string {
	if err == nil {
		return ErrorUnknown.String()
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err.Error()
	}
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) {
		return linkErr.Err.Error()
	}
	return err.Error()
}
