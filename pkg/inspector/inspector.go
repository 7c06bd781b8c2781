// Package inspector spawns a quotascope server as a child process and
// probes it over stdio: initialize, then tools/list. It exists so the
// advertised tool surface can be checked without a real MCP host.
package inspector

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/misfitdev/quotascope/mcp"
	"github.com/misfitdev/quotascope/pkg/config"
)

// response is the client-side envelope. Result stays raw so each call
// site decodes its own payload shape.
type response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      any              `json:"id"`
	Result  json.RawMessage  `json:"result"`
	Error   *mcp.ErrorObject `json:"error,omitempty"`
}

// Inspect runs the given command, performs the initialize and
// tools/list handshake over its stdio, and returns the advertised
// tools. The caller's ctx bounds the whole probe; on cancellation the
// child is terminated.
func Inspect(ctx context.Context, command string, args ...string) ([]mcp.Tool, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, err
	}
	defer gracefulStop(cmd)

	// One scanner for the whole session; a fresh scanner per read
	// could drop lines it had already buffered.
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	if err := send(stdin, map[string]any{
		"jsonrpc": mcp.Version,
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.ProtocolVersion,
			"capabilities":    map[string]any{},
			"clientInfo": map[string]any{
				"name":    "quotascope-inspector",
				"version": config.ServerVersion,
			},
		},
	}); err != nil {
		return nil, err
	}

	var initResp response
	if err := recv(scanner, &initResp); err != nil {
		return nil, err
	}
	if initResp.Error != nil {
		return nil, fmt.Errorf("initialize failed: %s", initResp.Error.Message)
	}

	if err := send(stdin, map[string]any{
		"jsonrpc": mcp.Version,
		"id":      2,
		"method":  "tools/list",
	}); err != nil {
		return nil, err
	}

	var listResp response
	if err := recv(scanner, &listResp); err != nil {
		return nil, err
	}
	if listResp.Error != nil {
		return nil, fmt.Errorf("tools/list failed: %s", listResp.Error.Message)
	}

	var result mcp.ToolsListResult
	if err := json.Unmarshal(listResp.Result, &result); err != nil {
		return nil, fmt.Errorf("decode tools/list result: %w", err)
	}
	return result.Tools, nil
}

// gracefulStop interrupts the child so it can drain, then kills it if
// it has not exited within five seconds.
func gracefulStop(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		return
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		cmd.Process.Kill()
		<-done
	}
}

func send(w io.Writer, msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func recv(scanner *bufio.Scanner, msg any) error {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return err
		}
		return io.EOF
	}
	return json.Unmarshal(scanner.Bytes(), msg)
}
