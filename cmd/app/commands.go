package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/starford/notearchiver/internal/archive"
	"github.com/starford/notearchiver/internal/archiveservice"
	"github.com/starford/notearchiver/internal/settings"
)

func archiveCommand() *cli.Command {
	return &cli.Command{
		Name:      "archive",
		Usage:     "Move notes into the archive folder",
		ArgsUsage: "<path> [path...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return cli.Exit("archive: at least one note path is required", 2)
			}
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			failed := 0
			for _, p := range cmd.Args().Slice() {
				res, err := rt.Service.Archive(ctx, p)
				if err != nil {
					failed++
					fmt.Fprintln(os.Stderr, archiveservice.FailureMessage(archive.NormalizePath(p), err))
					continue
				}
				fmt.Fprintln(os.Stdout, res.Message())
			}
			if failed > 0 {
				return cli.Exit(fmt.Sprintf("archive: %d of %d notes failed", failed, cmd.NArg()), 1)
			}
			return nil
		},
	}
}

func previewCommand() *cli.Command {
	return &cli.Command{
		Name:      "preview",
		Usage:     "Print where notes would be archived, without moving them",
		ArgsUsage: "<path> [path...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() == 0 {
				return cli.Exit("preview: at least one note path is required", 2)
			}
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			for _, p := range cmd.Args().Slice() {
				dst, err := rt.Service.Preview(ctx, p)
				if err != nil {
					return cli.Exit(fmt.Sprintf("preview %s: %v", p, err), 1)
				}
				fmt.Fprintf(os.Stdout, "%s -> %s\n", archive.NormalizePath(p), dst)
			}
			return nil
		},
	}
}

func notesCommand() *cli.Command {
	return &cli.Command{
		Name:  "notes",
		Usage: "List notes outside the archive folder",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Filter by path or title"},
			&cli.IntFlag{Name: "limit", Value: 50, Usage: "Page size"},
			&cli.IntFlag{Name: "offset", Usage: "Page offset"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			notes, total, err := rt.Service.ArchivableNotes(ctx, cmd.String("query"),
				int(cmd.Int("limit")), int(cmd.Int("offset")))
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, n := range notes {
				fmt.Fprintf(tw, "%s\t%s\n", n.Path, n.Title)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "%d of %d notes\n", len(notes), total)
			return nil
		},
	}
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or change the archive settings",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the current settings as JSON",
				Action: func(_ context.Context, cmd *cli.Command) error {
					rt, err := openRuntime(cmd)
					if err != nil {
						return err
					}
					defer rt.Close()
					return printJSON(rt.Service.Settings())
				},
			},
			{
				Name:  "set",
				Usage: "Change the archive folder and/or grouping",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "folder", Usage: "Vault-relative archive folder"},
					&cli.StringFlag{Name: "grouping", Usage: groupingUsage()},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					var p settings.Patch
					if cmd.IsSet("folder") {
						v := cmd.String("folder")
						p.ArchiveFolderName = &v
					}
					if cmd.IsSet("grouping") {
						v := cmd.String("grouping")
						p.Grouping = &v
					}
					if p.ArchiveFolderName == nil && p.Grouping == nil {
						return cli.Exit("settings set: pass --folder and/or --grouping", 2)
					}

					rt, err := openRuntime(cmd)
					if err != nil {
						return err
					}
					defer rt.Close()

					updated, err := rt.Service.UpdateSettings(ctx, p)
					if err != nil {
						return cli.Exit(fmt.Sprintf("settings set: %v", err), 1)
					}
					return printJSON(updated)
				},
			},
			{
				Name:  "status",
				Usage: "Check what occupies the archive folder path",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					rt, err := openRuntime(cmd)
					if err != nil {
						return err
					}
					defer rt.Close()

					st, err := rt.Service.FolderStatus(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(os.Stdout, "%s: %s\n", st.Folder, st.Message)
					if st.State == archiveservice.FolderIsFile {
						return cli.Exit("", 1)
					}
					return nil
				},
			},
		},
	}
}

func groupingUsage() string {
	parts := make([]string, 0, len(archive.Groupings))
	for _, g := range archive.Groupings {
		parts = append(parts, fmt.Sprintf("%s (%s)", g, g.Label()))
	}
	return "One of " + strings.Join(parts, ", ")
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
