// File: cmd/wsproxy/send.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func sendCmd() *cobra.Command {
	var (
		url  string
		wait time.Duration
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send stdin lines to a proxy and print what comes back",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), url, nil)
			if err != nil {
				return fmt.Errorf("dial %s: %w", url, err)
			}
			defer ws.Close()

			out := cmd.OutOrStdout()
			received := make(chan error, 1)
			go func() {
				for {
					_, p, err := ws.ReadMessage()
					if err != nil {
						if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
							err = nil
						}
						received <- err
						return
					}
					if _, err := out.Write(p); err != nil {
						received <- err
						return
					}
				}
			}()

			sc := bufio.NewScanner(cmd.InOrStdin())
			for sc.Scan() {
				line := append(append([]byte(nil), sc.Bytes()...), '\n')
				if err := ws.WriteMessage(websocket.BinaryMessage, line); err != nil {
					return fmt.Errorf("send: %w", err)
				}
			}
			if err := sc.Err(); err != nil {
				return err
			}

			// Give echoes time to arrive, then close politely.
			select {
			case err := <-received:
				return err
			case <-time.After(wait):
			}
			deadline := time.Now().Add(time.Second)
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			if err := ws.WriteControl(websocket.CloseMessage, msg, deadline); err != nil &&
				!errors.Is(err, websocket.ErrCloseSent) {
				return err
			}
			_ = ws.SetReadDeadline(deadline)
			err = <-received
			var (
				ce *websocket.CloseError
				ne net.Error
			)
			if errors.As(err, &ce) || (errors.As(err, &ne) && ne.Timeout()) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "ws://127.0.0.1:8080/ws", "proxy WebSocket URL")
	cmd.Flags().DurationVar(&wait, "wait", 200*time.Millisecond, "time to wait for echoes after the last line")
	return cmd
}
