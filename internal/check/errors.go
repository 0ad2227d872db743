package check

import (
	"context"
	"errors"
	"net"

	"github.com/tmater/pulse/internal/proto"
)

// failure builds the ErrInfo for a failed check. Timeouts, whether from the
// context deadline or the network layer, are reported as such; anything else
// gets typ. The underlying error text is logged, not returned.
func failure(ctx context.Context, err error, typ proto.ErrType, msg string) *proto.ErrInfo {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &proto.ErrInfo{Type: proto.ErrTimeout, Message: msg + ": timed out"}
	}
	return &proto.ErrInfo{Type: typ, Message: msg}
}
