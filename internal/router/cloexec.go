package router

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// ClearCloseOnExec strips FD_CLOEXEC from every live client's raw fd so
// the re-exec (§4.F step 4) inherits the connection instead of the
// kernel silently closing it during exec. Go's net package marks every
// socket it creates close-on-exec for runtime-netpoller reasons that
// have nothing to do with this substrate's re-exec model, so accepted
// client connections need this cleared explicitly; the listening socket
// itself does not, since it always arrives via an inherited --socket-fd
// that was deliberately duplicated without FD_CLOEXEC for exactly this
// purpose.
func (r *Router) ClearCloseOnExec() error {
	for _, c := range r.reg.snapshot() {
		if c.isSelf() || c.fd < 0 {
			continue
		}
		if _, err := unix.FcntlInt(uintptr(c.fd), unix.F_SETFD, 0); err != nil {
			return fmt.Errorf("router: clearing close-on-exec for client %s (fd %d): %w", c.ID, c.fd, err)
		}
	}
	return nil
}
