// Package clipboard provides cross-platform clipboard access for grabbing
// URLs and copying them back out of the watch view.
package clipboard

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
)

// Service provides clipboard operations across different platforms
type Service struct {
	command string // custom clipboard read command from config, optional
	logger  *slog.Logger
}

// NewService creates a clipboard service. command overrides the OS-specific
// read tooling when set.
func NewService(command string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{command: command, logger: logger}
}

// Read returns the current clipboard content
func (s *Service) Read() (string, error) {
	var cmd *exec.Cmd

	if s.command != "" {
		parts := parseCommand(s.command)
		if len(parts) == 0 {
			return "", fmt.Errorf("invalid clipboard command: %s", s.command)
		}
		cmd = exec.Command(parts[0], parts[1:]...)
	} else {
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("pbpaste")
		case "linux":
			if isWSL() {
				cmd = exec.Command("powershell.exe", "-command", "Get-Clipboard")
			} else if commandExists("wl-paste") {
				cmd = exec.Command("wl-paste")
			} else if commandExists("xclip") {
				cmd = exec.Command("xclip", "-selection", "clipboard", "-o")
			} else if commandExists("xsel") {
				cmd = exec.Command("xsel", "--clipboard", "--output")
			} else {
				return "", fmt.Errorf("no clipboard tool found (install wl-clipboard, xclip, or xsel)")
			}
		case "windows":
			cmd = exec.Command("powershell.exe", "-command", "Get-Clipboard")
		default:
			return "", fmt.Errorf("clipboard reading not supported on %s", runtime.GOOS)
		}
	}

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// ReadURLs reads the clipboard and returns the URLs it contains, one per
// whitespace-separated token
func (s *Service) ReadURLs() ([]string, error) {
	content, err := s.Read()
	if err != nil {
		return nil, err
	}
	return ExtractURLs(content), nil
}

// Write copies text to the system clipboard, falling back to OS tooling
// when the primary method is unavailable (headless Linux, mostly)
func (s *Service) Write(text string) error {
	if err := clipboard.WriteAll(text); err == nil {
		return nil
	} else {
		s.logger.Debug("primary clipboard write failed, using fallback", "error", err)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbcopy")
	case "linux":
		if isWSL() {
			cmd = exec.Command("clip.exe")
		} else if commandExists("wl-copy") {
			cmd = exec.Command("wl-copy")
		} else if commandExists("xclip") {
			cmd = exec.Command("xclip", "-selection", "clipboard")
		} else if commandExists("xsel") {
			cmd = exec.Command("xsel", "--clipboard", "--input")
		} else {
			return fmt.Errorf("no clipboard tool found (install wl-clipboard, xclip, or xsel)")
		}
	case "windows":
		cmd = exec.Command("clip.exe")
	default:
		return fmt.Errorf("clipboard writing not supported on %s", runtime.GOOS)
	}

	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}

// ExtractURLs picks the http(s) URLs out of arbitrary clipboard text
func ExtractURLs(content string) []string {
	var urls []string
	for _, token := range strings.Fields(content) {
		if !strings.HasPrefix(token, "http://") && !strings.HasPrefix(token, "https://") {
			continue
		}
		if u, err := url.Parse(token); err == nil && u.Host != "" {
			urls = append(urls, token)
		}
	}
	return urls
}

// parseCommand parses a command string into executable parts, respecting quotes
func parseCommand(command string) []string {
	var parts []string
	var currentPart string
	var inQuotes bool
	var quoteChar rune

	for _, char := range command {
		switch {
		case char == '\'' || char == '"':
			if !inQuotes {
				inQuotes = true
				quoteChar = char
			} else if char == quoteChar {
				inQuotes = false
			} else {
				currentPart += string(char)
			}
		case char == ' ' && !inQuotes:
			if currentPart != "" {
				parts = append(parts, currentPart)
				currentPart = ""
			}
		default:
			currentPart += string(char)
		}
	}

	if currentPart != "" {
		parts = append(parts, currentPart)
	}

	return parts
}

// isWSL checks for Windows Subsystem for Linux, where the Windows clipboard
// tools are the ones that actually work
func isWSL() bool {
	version, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	v := strings.ToLower(string(version))
	return strings.Contains(v, "microsoft") || strings.Contains(v, "wsl")
}

func commandExists(cmd string) bool {
	_, err := exec.LookPath(cmd)
	return err == nil
}
