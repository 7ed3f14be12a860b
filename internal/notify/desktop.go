package notify

import (
	"context"
	log "log/slog"
	"os/exec"
	"time"
)

// Desktop raises notifications with notify-send.
type Desktop struct {
	Bin  string
	Icon string
}

func (d Desktop) Notify(title, body string) {
	bin := d.Bin
	if bin == "" {
		bin = "notify-send"
	}

	args := []string{"--app-name=voxbar"}
	if d.Icon != "" {
		args = append(args, "--icon="+d.Icon)
	}
	args = append(args, title, body)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := exec.CommandContext(ctx, bin, args...).Run(); err != nil {
		log.Error("Failed to send notification", "title", title, "err", err)
	}
}
