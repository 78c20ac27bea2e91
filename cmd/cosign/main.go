package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mossy-p/docsync/config"
	"github.com/mossy-p/docsync/internal/docsource"
	"github.com/mossy-p/docsync/internal/document"
	"github.com/mossy-p/docsync/internal/logging"
	"github.com/mossy-p/docsync/internal/preview"
	"github.com/mossy-p/docsync/internal/relay"
	"github.com/mossy-p/docsync/internal/signature"
	"github.com/mossy-p/docsync/internal/workspace"
	"github.com/rs/zerolog"
)

type options struct {
	room       string
	src        string
	out        string
	pdf        string
	convertURL string
	previewDir string
}

func main() {
	cfg := config.LoadClient()

	relayURL := flag.String("relay", cfg.RelayURL, "relay websocket url")
	room := flag.String("room", "", "room to join on start (optional)")
	src := flag.String("src", "", "document file or http(s) url to load")
	out := flag.String("out", "", "file the 'save' command writes markup to")
	pdf := flag.String("pdf", "", "file the 'export' command writes the converted document to")
	convertURL := flag.String("convert-url", cfg.ConvertURL, "markup to pdf conversion endpoint")
	previewDir := flag.String("preview-dir", "", "directory for signature previews (optional)")
	padWidth := flag.Float64("pad-width", cfg.PadWidth, "signature pad width in pixels")
	flag.Parse()

	logger := logging.New(cfg.LogLevel, cfg.Environment)
	opts := options{
		room:       *room,
		src:        *src,
		out:        *out,
		pdf:        *pdf,
		convertURL: *convertURL,
		previewDir: *previewDir,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := relay.New(relay.DefaultConfig(*relayURL), logger)
	defer session.Leave()

	ws := workspace.New(session, workspace.Config{PadWidth: *padWidth}, logger)
	ws.OnDisconnect(func(err error) {
		fmt.Println("\ndisconnected:", err)
		fmt.Println("use 'join <room>' to reconnect")
	})
	if opts.previewDir != "" {
		ws.OnSigned(func(res signature.Result, region document.Region) {
			writePreview(logger, opts.previewDir, res, region)
		})
	}
	go ws.Run(ctx)

	source := docsource.New(nil)
	if opts.src != "" {
		markup, err := source.Load(ctx, opts.src)
		if err != nil {
			fmt.Println("load error:", err)
			os.Exit(1)
		}
		if err := ws.Do(ctx, func(doc *document.Controller, _ *signature.Controller) error {
			return doc.Load(markup)
		}); err != nil {
			fmt.Println("load error:", err)
			os.Exit(1)
		}
	}

	if opts.room != "" {
		if err := session.Join(ctx, opts.room); err != nil {
			fmt.Println("join error:", err)
		}
	}

	fmt.Printf("participant: %s relay: %s\n", session.Sender(), *relayURL)
	fmt.Println("type 'help' for commands")
	repl(ctx, session, ws, source, opts)
}

func repl(ctx context.Context, session *relay.Session, ws *workspace.Workspace, source *docsource.Source, opts options) {
	do := func(fn func(doc *document.Controller, sig *signature.Controller) error) {
		if err := ws.Do(ctx, fn); err != nil {
			fmt.Println("error:", err)
		}
	}

	s := bufio.NewScanner(os.Stdin)
	prompt := func() { fmt.Print("> ") }
	prompt()
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" {
			prompt()
			continue
		}
		args := strings.Fields(line)
		switch strings.ToLower(args[0]) {
		case "help":
			printHelp()
		case "join":
			if len(args) < 2 {
				fmt.Println("usage: join <room>")
				break
			}
			if err := session.Join(ctx, args[1]); err != nil {
				fmt.Println("error:", err)
			} else {
				fmt.Println("joined", args[1])
			}
		case "leave":
			session.Leave()
			fmt.Println("left")
		case "load":
			// load <file|url>
			if len(args) < 2 {
				fmt.Println("usage: load <file|url>")
				break
			}
			markup, err := source.Load(ctx, args[1])
			if err != nil {
				fmt.Println("error:", err)
				break
			}
			do(func(doc *document.Controller, _ *signature.Controller) error {
				return doc.Load(markup)
			})
		case "scroll":
			if len(args) < 2 {
				fmt.Println("usage: scroll <position>")
				break
			}
			pos, ok := parseFloat(args[1])
			if !ok {
				fmt.Println("bad position:", args[1])
				break
			}
			do(func(doc *document.Controller, _ *signature.Controller) error {
				doc.Scroll(pos)
				return nil
			})
		case "check":
			// check <elementID>
			if len(args) < 2 {
				fmt.Println("usage: check <elementID>")
				break
			}
			do(func(doc *document.Controller, _ *signature.Controller) error {
				if err := doc.ToggleCheckbox(args[1]); err != nil {
					return err
				}
				text, _ := doc.Text(args[1])
				fmt.Println(args[1], "=", text)
				return nil
			})
		case "open":
			// open <regionID>
			if len(args) < 2 {
				fmt.Println("usage: open <regionID>")
				break
			}
			do(func(doc *document.Controller, sig *signature.Controller) error {
				if err := doc.OpenRegion(args[1]); err != nil {
					return err
				}
				surface := sig.Surface()
				fmt.Printf("drawing on %gx%g pad (pen %g)\n", surface.Width, surface.Height, sig.PenSize())
				return nil
			})
		case "down":
			do(func(_ *document.Controller, sig *signature.Controller) error { return sig.PointerDown() })
		case "move":
			// move <x> <y> [<x> <y> ...]
			if len(args) < 3 || len(args)%2 == 0 {
				fmt.Println("usage: move <x> <y> [<x> <y> ...]")
				break
			}
			pts, ok := parsePoints(args[1:])
			if !ok {
				fmt.Println("bad coordinates")
				break
			}
			do(func(_ *document.Controller, sig *signature.Controller) error {
				for _, p := range pts {
					if err := sig.PointerMove(p[0], p[1], true); err != nil {
						return err
					}
				}
				return nil
			})
		case "up":
			do(func(_ *document.Controller, sig *signature.Controller) error {
				if err := sig.PointerUp(); err != nil {
					return err
				}
				fmt.Println("strokes:", sig.Strokes())
				return nil
			})
		case "submit":
			do(func(_ *document.Controller, sig *signature.Controller) error {
				res, err := sig.Submit()
				if err != nil {
					return err
				}
				fmt.Printf("signed region %s with %d strokes (scale %g)\n", res.RegionID, len(res.Outlines), res.ScaleFactor)
				return nil
			})
		case "close":
			do(func(_ *document.Controller, sig *signature.Controller) error {
				sig.Close()
				return nil
			})
		case "show":
			// show [elementID]
			do(func(doc *document.Controller, sig *signature.Controller) error {
				if len(args) > 1 {
					text, ok := doc.Text(args[1])
					if !ok {
						return fmt.Errorf("unknown element %q", args[1])
					}
					fmt.Printf("%s: %q\n", args[1], text)
					return nil
				}
				show(session, doc, sig)
				return nil
			})
		case "save":
			if opts.out == "" {
				fmt.Println("start with -out to save markup")
				break
			}
			var content string
			do(func(doc *document.Controller, _ *signature.Controller) error {
				content = doc.Content()
				return nil
			})
			if err := os.WriteFile(opts.out, []byte(content), 0o644); err != nil {
				fmt.Println("error:", err)
			} else {
				fmt.Println("saved", opts.out)
			}
		case "export":
			if opts.pdf == "" {
				fmt.Println("start with -pdf to export")
				break
			}
			var content string
			do(func(doc *document.Controller, _ *signature.Controller) error {
				content = doc.Content()
				return nil
			})
			data, err := source.Convert(ctx, opts.convertURL, content)
			if err != nil {
				fmt.Println("error:", err)
				break
			}
			if err := os.WriteFile(opts.pdf, data, 0o644); err != nil {
				fmt.Println("error:", err)
			} else {
				fmt.Println("exported", opts.pdf)
			}
		case "quit", "exit":
			return
		default:
			fmt.Println("unknown command; type 'help'")
		}
		prompt()
	}
}

func show(session *relay.Session, doc *document.Controller, sig *signature.Controller) {
	fmt.Printf("session: %s room=%q\n", session.State(), session.RoomID())
	fp, err := doc.Fingerprint()
	if err != nil {
		fp = "error: " + err.Error()
	}
	fmt.Printf("document: revision=%d scroll=%g fingerprint=%s\n", doc.Revision(), doc.ScrollOffset(), fp)
	for i := 0; i < doc.Regions(); i++ {
		r, _ := doc.Region(strconv.Itoa(i))
		fmt.Printf("  region %s %gx%g signed=%v strokes=%d %q\n", r.ID, r.Width, r.Height, r.Signed, len(r.Paths), r.Placeholder)
	}
	fmt.Printf("signature: %s region=%q strokes=%d samples=%d\n",
		sig.State(), sig.Request().RegionID, sig.Strokes(), sig.Samples())
}

func writePreview(logger zerolog.Logger, dir string, res signature.Result, region document.Region) {
	w, h := int(math.Ceil(region.Width)), int(math.Ceil(region.Height))
	path := filepath.Join(dir, "region-"+res.RegionID+".png")
	f, err := os.Create(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("failed to create preview")
		return
	}
	defer f.Close()
	if err := preview.Render(f, res, w, h); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("failed to render preview")
		return
	}
	logger.Info().Str("path", path).Msg("signature preview written")
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parsePoints(args []string) ([][2]float64, bool) {
	pts := make([][2]float64, 0, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		x, ok := parseFloat(args[i])
		if !ok {
			return nil, false
		}
		y, ok := parseFloat(args[i+1])
		if !ok {
			return nil, false
		}
		pts = append(pts, [2]float64{x, y})
	}
	return pts, true
}

func printHelp() {
	fmt.Println(`commands:
  join <room>                 connect to the relay and join a room
  leave                       leave the current room
  load <file|url>             load a document (reassigns element ids)
  scroll <position>           scroll and mirror to the room
  check <elementID>           toggle a checkbox element
  open <regionID>             open a signature region for drawing
  down                        pointer down
  move <x> <y> [<x> <y> ...]  pointer samples with the primary button held
  up                          finish the current stroke
  submit                      place the signature into the document
  close                       abandon the capture
  show [elementID]            print session, document and capture state
  save                        write markup to the -out file
  export                      convert markup to pdf into the -pdf file
  quit                        exit`)
}
