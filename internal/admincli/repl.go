package admincli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL dispatches to. *App satisfies
// it; tests substitute a recorder.
type execIface interface {
	CreateAdmin(ctx context.Context) error
	ListOTPs(ctx context.Context, args []string) error
	ListActive(ctx context.Context, args []string) error
	Find(ctx context.Context, args []string) error
	Stats(ctx context.Context) error
	Delete(ctx context.Context, args []string) error
	PurgeExpired(ctx context.Context) error
	PurgeAll(ctx context.Context) error
}

const helpText = "Available commands: create-admin, otps [n], active [n], find <email>, stats, delete <id>, purge-expired, purge-all, exit"

// runREPL reads one command per line and dispatches it. Command errors are
// printed and the loop carries on. It returns on EOF, "exit" or "quit", or
// when ctx is done.
func runREPL(ctx context.Context, a execIface, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprint(w, "dovolctl> ")
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help", "?":
			fmt.Fprintln(w, helpText)
		case "create-admin":
			cmdErr = a.CreateAdmin(ctx)
		case "otps":
			cmdErr = a.ListOTPs(ctx, args)
		case "active":
			cmdErr = a.ListActive(ctx, args)
		case "find":
			cmdErr = a.Find(ctx, args)
		case "stats":
			cmdErr = a.Stats(ctx)
		case "delete":
			cmdErr = a.Delete(ctx, args)
		case "purge-expired":
			cmdErr = a.PurgeExpired(ctx)
		case "purge-all":
			cmdErr = a.PurgeAll(ctx)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if cmdErr != nil {
			fmt.Fprintln(w, "Error:", cmdErr)
		}
	}
}
