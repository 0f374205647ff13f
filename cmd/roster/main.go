package main

import (
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"wedstrijd-bot/internal/models"
	"wedstrijd-bot/internal/roster"
	"wedstrijd-bot/internal/store"
)

const (
	dataDirFlag   = "data-dir"
	outputFlag    = "output"
	yamlFlag      = "yaml"
	stdoutCLIName = "-"
)

var build string
var semanticVersion = "v0.1.0-dev" + build

func service(cCtx *cli.Context) (*roster.Service, error) {
	st, err := store.New(cCtx.String(dataDirFlag))
	if err != nil {
		return nil, err
	}
	return roster.NewService(st), nil
}

// argN returns positional argument i or a usage error naming it.
func argN(cCtx *cli.Context, i int, name string) (string, error) {
	if cCtx.NArg() <= i {
		return "", fmt.Errorf("missing argument <%s>", name)
	}
	return cCtx.Args().Get(i), nil
}

// participantKey reads <naam> <paard> starting at argument i.
func participantKey(cCtx *cli.Context, i int) (models.Key, error) {
	name, err := argN(cCtx, i, "naam")
	if err != nil {
		return models.Key{}, err
	}
	horse, err := argN(cCtx, i+1, "paard")
	if err != nil {
		return models.Key{}, err
	}
	return models.Key{FullName: name, HorseName: horse}, nil
}

func createCommand() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create an empty competition",
		ArgsUsage: "<name> <date>",
		Action: func(cCtx *cli.Context) error {
			name, err := argN(cCtx, 0, "name")
			if err != nil {
				return err
			}
			date, err := argN(cCtx, 1, "date")
			if err != nil {
				return err
			}
			svc, err := service(cCtx)
			if err != nil {
				return err
			}
			id, err := svc.Create(name, date)
			if err != nil {
				return err
			}
			fmt.Fprintln(cCtx.App.Writer, id)
			return nil
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List competition ids",
		Action: func(cCtx *cli.Context) error {
			svc, err := service(cCtx)
			if err != nil {
				return err
			}
			ids, err := svc.List()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cCtx.App.Writer, id)
			}
			return nil
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a competition and its roster",
		ArgsUsage: "<id>",
		Action: func(cCtx *cli.Context) error {
			id, err := argN(cCtx, 0, "id")
			if err != nil {
				return err
			}
			svc, err := service(cCtx)
			if err != nil {
				return err
			}
			return svc.Delete(id)
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Merge a registration CSV into a competition",
		ArgsUsage: "<id> <file or \"-\" for stdin>",
		Action: func(cCtx *cli.Context) error {
			id, err := argN(cCtx, 0, "id")
			if err != nil {
				return err
			}
			input, err := argN(cCtx, 1, "file")
			if err != nil {
				return err
			}
			var r io.Reader = os.Stdin
			if input != stdoutCLIName {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			svc, err := service(cCtx)
			if err != nil {
				return err
			}
			rep, err := svc.Import(id, r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cCtx.App.Writer, "rows=%d added=%d duplicates=%d skipped=%d malformed=%d total=%d\n",
				rep.Rows, rep.Added, rep.Duplicates, rep.Skipped, rep.Malformed, rep.Total)
			return nil
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print a competition roster",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: yamlFlag, Usage: "Print the full record as YAML"},
		},
		Action: func(cCtx *cli.Context) error {
			id, err := argN(cCtx, 0, "id")
			if err != nil {
				return err
			}
			svc, err := service(cCtx)
			if err != nil {
				return err
			}
			c, err := svc.Get(id)
			if err != nil {
				return err
			}
			if cCtx.Bool(yamlFlag) {
				return writeYAML(cCtx.App.Writer, c)
			}
			return writeTable(cCtx.App.Writer, id, c)
		},
	}
}

func writeYAML(w io.Writer, c models.Competition) error {
	yamlEncoder := yaml.NewEncoder(w)
	yamlEncoder.SetIndent(2)
	if err := yamlEncoder.Encode(&c); err != nil {
		return fmt.Errorf("encoding to YAML failed: %w", err)
	}
	return yamlEncoder.Close()
}

func writeTable(w io.Writer, id string, c models.Competition) error {
	last := "-"
	if c.LastUpload != nil {
		last = *c.LastUpload
	}
	fmt.Fprintf(w, "%s  date=%s  participants=%d  contacted=%d  last_upload=%s\n",
		id, c.Date, len(c.Participants), c.ContactedCount(), last)
	for _, p := range c.Participants {
		mark := " "
		if p.Contacted {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] %s | %s | %s | %s | %s\n", mark, p.FullName, p.HorseName, p.Class, p.Category, p.Phone)
	}
	return nil
}

func contactedCommand() *cli.Command {
	return &cli.Command{
		Name:      "contacted",
		Usage:     "Mark a participant as contacted",
		ArgsUsage: "<id> <naam> <paard>",
		Action: func(cCtx *cli.Context) error {
			id, err := argN(cCtx, 0, "id")
			if err != nil {
				return err
			}
			k, err := participantKey(cCtx, 1)
			if err != nil {
				return err
			}
			svc, err := service(cCtx)
			if err != nil {
				return err
			}
			return svc.MarkContacted(id, k)
		},
	}
}

func noteCommand() *cli.Command {
	return &cli.Command{
		Name:      "note",
		Usage:     "Set the note of a participant (empty text clears it)",
		ArgsUsage: "<id> <naam> <paard> [text]",
		Action: func(cCtx *cli.Context) error {
			id, err := argN(cCtx, 0, "id")
			if err != nil {
				return err
			}
			k, err := participantKey(cCtx, 1)
			if err != nil {
				return err
			}
			svc, err := service(cCtx)
			if err != nil {
				return err
			}
			return svc.SetNote(id, k, cCtx.Args().Get(3))
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write the roster as CSV",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    outputFlag,
				Aliases: []string{"o"},
				Usage:   "Where to write the CSV. Can be a file path or \"-\" (for stdout).",
				Value:   stdoutCLIName,
			},
		},
		Action: func(cCtx *cli.Context) error {
			id, err := argN(cCtx, 0, "id")
			if err != nil {
				return err
			}
			svc, err := service(cCtx)
			if err != nil {
				return err
			}
			c, err := svc.Get(id)
			if err != nil {
				return err
			}
			out := cCtx.String(outputFlag)
			if out == stdoutCLIName {
				return roster.WriteCSV(cCtx.App.Writer, c.Participants)
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := roster.WriteCSV(f, c.Participants); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "roster",
		Usage:   "Manage competition rosters stored by the wedstrijd bot",
		Version: semanticVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    dataDirFlag,
				Usage:   "Directory holding one JSON file per competition",
				EnvVars: []string{"DATA_DIR"},
				Value:   "data",
			},
		},
		Commands: []*cli.Command{
			createCommand(),
			listCommand(),
			deleteCommand(),
			importCommand(),
			showCommand(),
			contactedCommand(),
			noteCommand(),
			exportCommand(),
		},
	}
}

func main() {
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}
