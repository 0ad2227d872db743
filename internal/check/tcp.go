package check

import (
	"context"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/tmater/pulse/internal/proto"
)

// TCP attempts to open a TCP connection to host:port.
func TCP(ctx context.Context, host string, port int) proto.TCPResult {
	address := net.JoinHostPort(host, strconv.Itoa(port))
	log.Printf("check: running TCP address=%s", address)

	result := proto.TCPResult{Attempted: true, Port: port}

	var d net.Dialer
	start := time.Now()
	conn, err := d.DialContext(ctx, "tcp", address)
	latency := time.Since(start)
	result.MS = int(latency.Milliseconds())

	if err != nil {
		result.Error = failure(ctx, err, proto.ErrConnectFailed, "tcp connection failed")
		log.Printf("check: TCP failed address=%s error=%s", address, err)
		return result
	}
	conn.Close()

	result.OK = true
	log.Printf("check: TCP done address=%s latency=%s", address, latency)
	return result
}
