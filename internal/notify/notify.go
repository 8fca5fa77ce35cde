// Package notify delivers user notifications after session transitions.
// Delivery failures are non-fatal.
package notify

import (
	"fmt"
	"os/exec"
	"runtime"
)

// Notifier is the notification sink collaborator.
type Notifier interface {
	Notify(title, message string)
}

// Desktop shells out to the platform notification tool. Missing tools degrade
// to a log line.
type Desktop struct{}

// Notify sends a desktop notification.
func (Desktop) Notify(title, message string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", message, title)
		cmd = exec.Command("osascript", "-e", script)
	case "linux":
		cmd = exec.Command("notify-send", title, message)
	default:
		fmt.Printf("[notify] %s: %s\n", title, message)
		return
	}

	if err := cmd.Run(); err != nil {
		fmt.Printf("warning: notification failed: %v\n", err)
		fmt.Printf("[notify] %s: %s\n", title, message)
	}
}

// Discard drops notifications; used when the user disables them.
type Discard struct{}

// Notify does nothing.
func (Discard) Notify(title, message string) {}

// Ensure implementations satisfy Notifier at compile time.
var (
	_ Notifier = Desktop{}
	_ Notifier = Discard{}
)
