package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Hchen1218/viral-content-breakdown/internal/model"
	"github.com/Hchen1218/viral-content-breakdown/internal/session"
	"github.com/spf13/cobra"
)

var (
	loginPlatform string
	loginBrowser  string
	loginOut      string
	loginTimeout  time.Duration
)

// sessionCmd represents the session command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage platform login sessions",
	Long: `Sessions carry the cookies downloader adapters need for gated
platforms. Acquire one ahead of time with 'session login' to avoid the
QR prompt in the middle of a breakdown run.`,
}

// sessionLoginCmd represents the session login command
var sessionLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to a platform via QR code and save the session",
	Long: `Login opens the platform's login page in a visible browser, waits for
you to scan the QR code, then exports the cookies and writes a session
handle usable with 'breakdown --session-file'.

Example:
  vcb session login --platform douyin
  vcb session login --platform xiaohongshu --browser chromium`,
	RunE: runSessionLogin,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLoginCmd)

	sessionLoginCmd.Flags().StringVar(&loginPlatform, "platform", "douyin", "platform to log in to (douyin, xiaohongshu, wechat_mp)")
	sessionLoginCmd.Flags().StringVar(&loginBrowser, "browser", "safari", "browser for QR login (safari, chromium)")
	sessionLoginCmd.Flags().StringVar(&loginOut, "session-file", "", "where to save the handle (default: ~/.vcb/sessions/<platform>.json)")
	sessionLoginCmd.Flags().DurationVar(&loginTimeout, "timeout", 5*time.Minute, "how long to wait for the QR scan")
}

func runSessionLogin(cmd *cobra.Command, args []string) error {
	platform := model.Platform(loginPlatform)
	switch platform {
	case model.PlatformDouyin, model.PlatformXiaohongshu, model.PlatformWechatMP:
	default:
		return fmt.Errorf("invalid --platform %q (want douyin, xiaohongshu, or wechat_mp)", loginPlatform)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("error finding home directory: %w", err)
	}
	sessionDir := filepath.Join(home, ".vcb", "sessions")
	outPath := loginOut
	if outPath == "" {
		outPath = filepath.Join(sessionDir, loginPlatform+".json")
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "Opening %s login page, scan the QR code to continue...\n", loginPlatform)

	provider := session.NewQRLoginProvider(loginBrowser, sessionDir, logger)
	handle, err := provider.Acquire(ctx, platform)
	if err != nil {
		return fmt.Errorf("session login failed: %w", err)
	}

	if err := session.Save(outPath, handle); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	fmt.Printf("Session saved: %s\n", outPath)
	fmt.Printf("Use it with: vcb breakdown <url> --session-file %s\n", outPath)
	return nil
}
