// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/sandboxrt/core/pkg/shell/exec"
	"github.com/sandboxrt/core/pkg/shell/parser"
	"github.com/sandboxrt/core/pkg/shellenv"
	"github.com/sandboxrt/core/pkg/stream"
)

// serveShellWebsocket exposes one fresh shell session per websocket
// connection: each text frame from the client is one line of shell
// input, and every byte the session writes to stdout/stderr is echoed
// back as a text frame. This gives a browser-resident frontend a
// duplex command channel without a real PTY.
func serveShellWebsocket(addr, cwd string) error {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	http.HandleFunc("/sh", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()
		handleShellConn(conn, cwd)
	})

	slog.Info("serving interactive shell over websocket", "addr", addr, "path", "/sh")
	return http.ListenAndServe(addr, nil)
}

// wsWriter adapts a websocket connection into an io.WriteCloser so it
// can back a stream.OutputStream.
type wsWriter struct {
	conn *websocket.Conn
}

func (w wsWriter) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w wsWriter) Close() error { return nil }

func handleShellConn(conn *websocket.Conn, cwd string) {
	env := shellenv.New(cwd)
	d := newDispatcher(env)
	x := exec.New(d)

	stdout := stream.NewOutputStream(wsWriter{conn})
	stderr := stream.NewOutputStream(wsWriter{conn})
	ctx := context.Background()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("websocket read error", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		node, err := parser.Parse(string(bytes.TrimSpace(data)))
		if err != nil {
			conn.WriteMessage(websocket.TextMessage, []byte("parse error: "+err.Error()+"\n"))
			continue
		}
		stdin := stream.NewInputStream(io.NopCloser(bytes.NewReader(nil)))
		code, err := x.Run(ctx, node, env, stdin, stdout, stderr)
		if err != nil {
			conn.WriteMessage(websocket.TextMessage, []byte("error: "+err.Error()+"\n"))
			continue
		}
		env.LastCode = code
	}
}
