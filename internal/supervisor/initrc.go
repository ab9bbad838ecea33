package supervisor

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strings"
)

// InitrcFile is the name looked up under each XDG_CONFIG_HOME-style
// directory by FindInitrc (§6.5).
const InitrcFile = "mds/initrc"

// FindInitrc searches, in order, $XDG_CONFIG_HOME, $HOME/.config,
// .config under the invoking user's home directory from the password
// database, each entry of $XDG_CONFIG_DIRS, and finally /etc for InitrcFile,
// returning the first path that exists. It reports an error only when
// none of the candidates exist.
func FindInitrc() (string, error) {
	var candidates []string

	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		candidates = append(candidates, filepath.Join(home, InitrcFile))
	}
	if home := os.Getenv("HOME"); home != "" {
		candidates = append(candidates, filepath.Join(home, ".config", InitrcFile))
	}
	if u, err := user.Current(); err == nil && u.HomeDir != "" {
		candidates = append(candidates, filepath.Join(u.HomeDir, ".config", InitrcFile))
	}
	if dirs := os.Getenv("XDG_CONFIG_DIRS"); dirs != "" {
		for _, dir := range strings.Split(dirs, ":") {
			if dir != "" {
				candidates = append(candidates, filepath.Join(dir, InitrcFile))
			}
		}
	}
	candidates = append(candidates, filepath.Join("/etc", InitrcFile))

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("supervisor: no %s found among %d candidate paths", InitrcFile, len(candidates))
}

// RunInitrc runs the script at path with args, inheriting the current
// environment and standard streams, without waiting for it to exit — it
// is meant to run alongside the router image's spawn/respawn loop, not
// block it (§6.5 says this happens "on initial spawn", which in this
// substrate's design is the supervisor, not the router image itself).
func RunInitrc(path string, args ...string) error {
	cmd := exec.Command(path, args...)
	cmd.Env = os.Environ()
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("supervisor: running initrc %s: %w", path, err)
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Warn("initrc %s exited with error: %v", path, err)
		}
	}()
	return nil
}
