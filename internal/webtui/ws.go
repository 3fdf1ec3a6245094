package webtui

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/creack/pty"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	frameSize    = 32 * 1024
	writeTimeout = 10 * time.Second
	maxTermSize  = 1000
)

// errChildExited ends a session normally when the TUI quits.
var errChildExited = errors.New("child exited")

// controlMsg is a JSON text frame from the browser. Anything else is input.
type controlMsg struct {
	Type string `json:"type"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  frameSize,
	WriteBufferSize: frameSize,
	CheckOrigin:     sameOrigin,
}

// sameOrigin allows non-browser clients (no Origin) and same-host pages.
func sameOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	_, host, ok := strings.Cut(origin, "://")
	return ok && strings.EqualFold(host, strings.TrimSpace(r.Host))
}

type ptySession struct {
	tty *os.File
	cmd *exec.Cmd
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sess, err := s.spawn()
	if err != nil {
		s.log.Warn("webtui: start session", "err", err)
		_ = conn.WriteMessage(websocket.TextMessage, []byte("failed to start session: "+err.Error()))
		return
	}
	defer sess.stop()
	pid := sess.cmd.Process.Pid
	s.log.Info("webtui: session started", "pid", pid, "remote", r.RemoteAddr)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error { return sess.output(conn) })
	g.Go(func() error { return sess.input(conn) })
	g.Go(func() error {
		// Either pump finishing unblocks the other.
		<-ctx.Done()
		sess.stop()
		_ = conn.Close()
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, errChildExited) && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		s.log.Debug("webtui: session error", "pid", pid, "err", err)
	}
	s.log.Info("webtui: session ended", "pid", pid)
}

func (s *Server) spawn() (*ptySession, error) {
	argv, err := s.childCommand()
	if err != nil {
		return nil, err
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = s.childEnv()
	tty, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: 120, Rows: 40})
	if err != nil {
		return nil, err
	}
	return &ptySession{tty: tty, cmd: cmd}, nil
}

func (p *ptySession) stop() {
	_ = p.tty.Close()
	if p.cmd.ProcessState == nil {
		_ = p.cmd.Process.Kill()
		_ = p.cmd.Wait()
	}
}

// output copies terminal bytes to the socket as binary frames.
func (p *ptySession) output(conn *websocket.Conn) error {
	buf := make([]byte, frameSize)
	for {
		n, err := p.tty.Read(buf)
		if n > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return errChildExited
		}
		if err != nil {
			return err
		}
	}
}

// input applies resize control frames and writes everything else to the PTY.
func (p *ptySession) input(conn *websocket.Conn) error {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if len(data) == 0 {
			continue
		}
		if mt == websocket.TextMessage && data[0] == '{' {
			if m, ok := parseControl(data); ok {
				_ = pty.Setsize(p.tty, &pty.Winsize{Cols: uint16(m.Cols), Rows: uint16(m.Rows)})
			}
			continue
		}
		if _, err := p.tty.Write(data); err != nil {
			return err
		}
	}
}

func parseControl(data []byte) (controlMsg, bool) {
	var m controlMsg
	if json.Unmarshal(data, &m) != nil || !strings.EqualFold(strings.TrimSpace(m.Type), "resize") {
		return controlMsg{}, false
	}
	if m.Cols <= 0 || m.Rows <= 0 || m.Cols > maxTermSize || m.Rows > maxTermSize {
		return controlMsg{}, false
	}
	return m, true
}

// childCommand is argv for the TUI process: this binary with no subcommand.
func (s *Server) childCommand() ([]string, error) {
	if len(s.cfg.Command) > 0 {
		return append([]string(nil), s.cfg.Command...), nil
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, err
	}
	argv := []string{exe}
	if api := strings.TrimSpace(s.cfg.APIBaseURL); api != "" {
		argv = append(argv, "--api", api)
	}
	return argv, nil
}

// childEnv carries the token; it never goes on argv.
func (s *Server) childEnv() []string {
	env := append(os.Environ(), "TERM=xterm-256color", "COLORTERM=truecolor")
	if tok := strings.TrimSpace(s.cfg.APIToken); tok != "" {
		env = append(env, "ETAPAS_API_TOKEN="+tok)
	}
	if theme := strings.TrimSpace(s.cfg.Theme); theme != "" {
		env = append(env, "ETAPAS_TUI_THEME="+theme)
	}
	return env
}

