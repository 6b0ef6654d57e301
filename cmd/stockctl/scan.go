// cmd/stockctl/scan.go
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
)

var errScanUsage = errors.New("usage: submit <type> [source] [target] | qty <code> <n> | rm <code> | clear | cart")

// scanLoop feeds lines from a keyboard-wedge scanner into the cart.
// Lines starting with a cart command manage the cart instead.
type scanLoop struct {
	cart      ports.CartService
	submitter ports.SubmissionService
	out       io.Writer
	sleep     func(time.Duration)
}

func (l *scanLoop) run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := l.handle(ctx, line); err != nil {
			fmt.Fprintf(l.out, "error: %s\n", domain.UserMessage(err))
		}
	}
	return sc.Err()
}

func (l *scanLoop) handle(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "submit":
		return l.submit(ctx, fields[1:])
	case "qty":
		if len(fields) != 3 {
			return errScanUsage
		}
		item, err := l.cart.SetQuantity(ctx, fields[1], domain.ParseQuantity(fields[2]))
		if err != nil {
			return err
		}
		fmt.Fprintf(l.out, "%s x%d\n", item.ItemCode, item.Quantity)
		return nil
	case "rm":
		if len(fields) != 2 {
			return errScanUsage
		}
		if err := l.cart.Remove(ctx, fields[1]); err != nil {
			return err
		}
		fmt.Fprintf(l.out, "removed %s\n", fields[1])
		return nil
	case "clear":
		if err := l.cart.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(l.out, "cart cleared")
		return nil
	case "cart":
		l.printCart(ctx)
		return nil
	}
	return l.scan(ctx, line)
}

func (l *scanLoop) scan(ctx context.Context, code string) error {
	result, err := l.cart.Scan(ctx, code)
	if result != nil {
		switch result.Outcome {
		case domain.ScanAdded, domain.ScanIncremented:
			fmt.Fprintf(l.out, "%s %s x%d\n", result.Outcome, result.Item.ItemCode, result.Item.Quantity)
		case domain.ScanNotFound:
			fmt.Fprintf(l.out, "not found: %s\n", result.Code)
		case domain.ScanSuppressed:
			fmt.Fprintf(l.out, "ignored repeat: %s\n", result.Code)
		}
		if result.ResumeAfter > 0 {
			l.sleep(result.ResumeAfter)
		}
	}
	return err
}

func (l *scanLoop) submit(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errScanUsage
	}
	typ, err := domain.ParseTransactionType(args[0])
	if err != nil {
		ve := domain.NewValidationError()
		ve.Add("type", err.Error())
		return ve
	}

	req := ports.SubmitRequest{Type: typ}
	rest := args[1:]
	if typ.NeedsSource() && len(rest) > 0 {
		req.SourceWarehouse, rest = rest[0], rest[1:]
	}
	if typ.NeedsTarget() && len(rest) > 0 {
		req.TargetWarehouse, rest = rest[0], rest[1:]
	}
	if len(rest) > 0 {
		return errScanUsage
	}

	record, err := l.submitter.Submit(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(l.out, "submitted %s\n", record.Name())
	return nil
}

func (l *scanLoop) printCart(ctx context.Context) {
	items := l.cart.Items(ctx)
	if len(items) == 0 {
		fmt.Fprintln(l.out, "cart is empty")
		return
	}
	for _, it := range items {
		fmt.Fprintf(l.out, "%-20s %-30s %5d %s\n", it.ItemCode, it.ItemName, it.Quantity, it.UOM)
	}
}
