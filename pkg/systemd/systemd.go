// Package systemd wraps sd_notify so the daemon reports readiness and
// shutdown to the service manager. All calls are no-ops outside a systemd
// unit (NOTIFY_SOCKET unset).
package systemd

import (
	"fmt"

	"github.com/coreos/go-systemd/v22/daemon"
)

// NotifyReady reports that startup is complete.
func NotifyReady() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
}

// NotifyStopping reports that shutdown has begun.
func NotifyStopping() {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
}

// NotifyStatus publishes a one-line status visible in systemctl status.
func NotifyStatus(status string) {
	_, _ = daemon.SdNotify(false, fmt.Sprintf("STATUS=%s", status))
}
