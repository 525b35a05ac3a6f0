package dispatch

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hivemind-sh/hivemind/internal/hive"
	"github.com/hivemind-sh/hivemind/internal/logging"
)

// maxLineBytes bounds a single request line.
const maxLineBytes = 4 * 1024 * 1024

// maxInFlight bounds concurrently handled requests.
const maxInFlight = 64

// Server reads newline-delimited JSON requests and writes responses.
// Requests are handled concurrently so a blocked long-poll never stalls
// other sessions; response writes are serialized.
type Server struct {
	d   *Dispatcher
	log *logging.Logger

	writeMu sync.Mutex
}

// NewServer creates a stdio server over a dispatcher.
func NewServer(d *Dispatcher, log *logging.Logger) *Server {
	return &Server{d: d, log: log.Sub("server")}
}

// Run serves until the input closes or ctx is cancelled.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxInFlight)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := make([]byte, len(scanner.Bytes()))
		copy(line, scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		g.Go(func() error {
			var req Request
			if err := json.Unmarshal(line, &req); err != nil {
				s.write(out, fail("", hive.New(hive.CodeInvalidParams, "invalid request: %s", err)))
				return nil
			}
			s.write(out, s.d.Dispatch(ctx, req))
			return nil
		})
	}

	err := g.Wait()
	if scanErr := scanner.Err(); scanErr != nil && err == nil {
		err = scanErr
	}
	return err
}

func (s *Server) write(out io.Writer, resp Response) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := json.NewEncoder(out).Encode(resp); err != nil {
		s.log.Warn().Err(err).Msg("failed to write response")
	}
}
