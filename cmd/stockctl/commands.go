// cmd/stockctl/commands.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ammerola/stockscan/internal/adapters/workbook"
	"github.com/ammerola/stockscan/internal/app"
	"github.com/ammerola/stockscan/internal/core/domain"
	"github.com/ammerola/stockscan/internal/core/ports"
	"github.com/ammerola/stockscan/internal/core/services"
)

const exportMaxRows = 50000

func newFlagSet(name string) *flag.FlagSet {
	return flag.NewFlagSet("stockctl "+name, flag.ContinueOnError)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runLogin(ctx context.Context, a *app.App, args []string) error {
	fs := newFlagSet("login")
	user := fs.String("user", a.Config.Backend.Username, "backend username")
	password := fs.String("password", a.Config.Backend.Password, "backend password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.Session.Login(ctx, *user, *password); err != nil {
		return err
	}
	fmt.Printf("logged in to %s as %s\n", a.Client.BaseURL(), *user)
	return nil
}

func runLogout(ctx context.Context, a *app.App, args []string) error {
	if err := newFlagSet("logout").Parse(args); err != nil {
		return err
	}
	if err := a.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func runList(ctx context.Context, a *app.App, args []string) error {
	fs := newFlagSet("list")
	doctype := fs.String("doctype", domain.DocTypeItem, "doctype to list")
	search := fs.String("search", "", "search term")
	pages := fs.Int("pages", 1, "number of pages to load")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := a.Records.NewFetcher(*doctype)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Search(ctx, *search); err != nil {
		return err
	}
	for i := 1; i < *pages && f.State().HasMore; i++ {
		if err := f.LoadMore(ctx); err != nil {
			return err
		}
	}

	st := f.State()
	fields := f.Spec().Fields
	for _, r := range st.Items {
		cols := make([]string, 0, len(fields))
		for _, field := range fields {
			cols = append(cols, r.String(field))
		}
		fmt.Println(strings.Join(cols, "\t"))
	}
	more := ""
	if st.HasMore {
		more = ", more available"
	}
	fmt.Fprintf(os.Stderr, "%d records, %d pages%s\n", len(st.Items), st.Page+1, more)
	return nil
}

func runGet(ctx context.Context, a *app.App, args []string) error {
	fs := newFlagSet("get")
	doctype := fs.String("doctype", domain.DocTypeItem, "doctype")
	name := fs.String("name", "", "record name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("-name is required")
	}

	record, err := a.Records.Get(ctx, *doctype, *name)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, record)
}

func runExport(ctx context.Context, a *app.App, args []string) error {
	fs := newFlagSet("export")
	doctype := fs.String("doctype", domain.DocTypeItem, "doctype to export")
	search := fs.String("search", "", "search term")
	out := fs.String("out", "", "output file (default: generated name)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	f, err := a.Records.NewFetcher(*doctype)
	if err != nil {
		return err
	}
	defer f.Close()
	f.SetSearch(*search)

	result, err := workbook.NewExcelExporter(exportMaxRows, a.Logger).Export(ctx, f)
	if err != nil {
		return err
	}

	path := *out
	if path == "" {
		path = result.FileName
	}
	if err := os.WriteFile(path, result.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	fmt.Printf("wrote %d rows to %s\n", result.Rows, path)
	if result.Truncated {
		fmt.Fprintf(os.Stderr, "export stopped at %d rows\n", exportMaxRows)
	}
	return nil
}

func runScan(ctx context.Context, a *app.App, args []string) error {
	if err := newFlagSet("scan").Parse(args); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "scan codes, one per line; submit/qty/rm/clear/cart manage the cart")

	loop := &scanLoop{
		cart:      a.Cart,
		submitter: a.Submitter,
		out:       os.Stdout,
		sleep:     time.Sleep,
	}
	return loop.run(ctx, os.Stdin)
}

func runDashboard(ctx context.Context, a *app.App, args []string) error {
	if err := newFlagSet("dashboard").Parse(args); err != nil {
		return err
	}
	return printJSON(os.Stdout, a.Dashboard.Load(ctx))
}

func runStock(ctx context.Context, a *app.App, args []string) error {
	fs := newFlagSet("stock")
	codes := fs.String("codes", "", "comma separated item codes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var list []string
	for _, c := range strings.Split(*codes, ",") {
		if c = strings.TrimSpace(c); c != "" {
			list = append(list, c)
		}
	}
	if len(list) == 0 {
		return fmt.Errorf("-codes is required")
	}

	stock, err := a.Stock.ItemStock(ctx, list)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, stock)
}

func runUpload(ctx context.Context, a *app.App, args []string) error {
	fs := newFlagSet("upload")
	path := fs.String("file", "", "file to upload")
	doctype := fs.String("doctype", "", "attach to this doctype")
	name := fs.String("name", "", "attach to this record")
	private := fs.Bool("private", true, "upload as a private file")
	folder := fs.String("folder", "", "backend folder")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("-file is required")
	}

	f, err := os.Open(*path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	uploaded, err := a.Uploader.Upload(ctx, ports.UploadRequest{
		FileName:    filepath.Base(*path),
		ContentType: mime.TypeByExtension(filepath.Ext(*path)),
		Body:        f,
		Size:        info.Size(),
		IsPrivate:   *private,
		Folder:      *folder,
		DocType:     *doctype,
		DocName:     *name,
		OnProgress: func(sent, total int64) {
			if total > 0 {
				fmt.Fprintf(os.Stderr, "\r%3d%%", sent*100/total)
			}
		},
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, uploaded)
}

func runImport(ctx context.Context, a *app.App, args []string) error {
	fs := newFlagSet("import")
	path := fs.String("file", "", "xlsx sheet of items")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("-file is required")
	}

	data, err := os.ReadFile(*path)
	if err != nil {
		return err
	}
	items, rowErrors, err := workbook.ReadItems(data)
	if err != nil {
		return err
	}
	for _, re := range rowErrors {
		fmt.Fprintf(os.Stderr, "row %d: %s\n", re.Row, re.Err)
	}

	summary, err := services.ImportItems(ctx, a.Records, items, a.Logger)
	if summary != nil {
		if perr := printJSON(os.Stdout, summary); perr != nil && err == nil {
			err = perr
		}
	}
	return err
}
