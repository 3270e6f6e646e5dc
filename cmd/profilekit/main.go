package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/hyperifyio/profilekit/internal/app"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := newCLI().Run(os.Args); err != nil {
		// A missing capture is the normal state of a fresh profile folder.
		if errors.Is(err, app.ErrNoSource) {
			os.Exit(0)
		}
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	return &cli.App{
		Name:    "profilekit",
		Usage:   "rebuild a static profile page from a captured profile",
		Version: app.BuildVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "YAML or JSON config file"},
			&cli.StringSliceFlag{Name: "env-file", Usage: "dotenv file to load (repeatable)", Value: cli.NewStringSlice(".env")},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "debug logging"},
			&cli.StringFlag{Name: "dir", Aliases: []string{"C"}, Usage: "profile directory (default: current directory)"},
			&cli.StringFlag{Name: "template", Usage: "template path, relative to the profile directory"},
			&cli.StringFlag{Name: "cache-dir", Usage: "HTTP cache directory"},
			&cli.IntFlag{Name: "budget", Usage: "character budget per custom field"},
		},
		Before:      setup,
		HideVersion: true, // -v is --verbose; build info comes from the version command
		Commands: []*cli.Command{
			{
				Name:      "update",
				Usage:     "render the captured source into the template and localize images",
				ArgsUsage: "[source.html]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "offline", Usage: "only map images already downloaded"},
					&cli.BoolFlag{Name: "no-history", Usage: "do not record the run"},
					&cli.IntFlag{Name: "concurrency", Usage: "parallel image downloads"},
					&cli.StringFlag{Name: "user-agent", Usage: "User-Agent for image downloads"},
					&cli.DurationFlag{Name: "cache-max-age", Usage: "purge cache entries older than this"},
					&cli.BoolFlag{Name: "cache-clear", Usage: "clear the cache before running"},
				},
				Action: UpdateAction,
			},
			{
				Name:   "inline",
				Usage:  "copy custom.html into the template",
				Action: InlineAction,
			},
			{
				Name:   "minify",
				Usage:  "write custom.min.css and custom.min.html",
				Action: MinifyAction,
			},
			{
				Name:   "shorten",
				Usage:  "shorten identifiers in custom.css and custom.html",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "plan", Usage: "YAML shortening plan (default: built-in)"}},
				Action: ShortenAction,
			},
			{
				Name:   "analyze",
				Usage:  "report where custom.css spends its characters",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "plan", Usage: "YAML plan supplying the patterns to count"}},
				Action: AnalyzeAction,
			},
			{
				Name:  "history",
				Usage: "list recorded update runs",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "maximum runs to list (0 for all)"},
					&cli.Int64Flag{Name: "run", Usage: "list the images of one run instead"},
				},
				Action: HistoryAction,
			},
			{
				Name:  "cache",
				Usage: "manage the HTTP cache",
				Subcommands: []*cli.Command{
					{Name: "clear", Usage: "remove every cached response", Action: CacheClearAction},
				},
			},
			{
				Name:   "version",
				Usage:  "print build information",
				Action: VersionAction,
			},
		},
	}
}

func setup(c *cli.Context) error {
	if err := app.LoadEnvFiles(c.StringSlice("env-file")...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	verbose := c.Bool("verbose")
	if v, ok := os.LookupEnv("VERBOSE"); ok && !c.IsSet("verbose") {
		verbose = v == "1" || v == "true" || v == "yes" || v == "on"
	}
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	return nil
}

// loadConfig layers the config file, then the environment, then explicitly
// set flags.
func loadConfig(c *cli.Context) (app.Config, error) {
	var cfg app.Config
	if p := c.String("config"); p != "" {
		fc, err := app.LoadConfigFile(p)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	str := func(dst *string, name string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	boolean := func(dst *bool, name string) {
		if c.IsSet(name) {
			*dst = c.Bool(name)
		}
	}
	str(&cfg.ProfileDir, "dir")
	str(&cfg.TemplatePath, "template")
	str(&cfg.CacheDir, "cache-dir")
	str(&cfg.UserAgent, "user-agent")
	str(&cfg.PlanPath, "plan")
	boolean(&cfg.Offline, "offline")
	boolean(&cfg.NoHistory, "no-history")
	boolean(&cfg.CacheClear, "cache-clear")
	boolean(&cfg.Verbose, "verbose")
	if c.IsSet("budget") {
		cfg.Budget = c.Int("budget")
	}
	if c.IsSet("concurrency") {
		cfg.DownloadConcurrency = c.Int("concurrency")
	}
	if c.IsSet("cache-max-age") {
		cfg.CacheMaxAge = c.Duration("cache-max-age")
	}
	return cfg, nil
}

func newApp(c *cli.Context, mutate func(*app.Config)) (*app.App, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := app.New(c.Context, cfg)
	if err != nil {
		return nil, fmt.Errorf("init app: %w", err)
	}
	return a, nil
}

// UpdateAction handles the update command.
func UpdateAction(c *cli.Context) error {
	a, err := newApp(c, func(cfg *app.Config) {
		if src := c.Args().First(); src != "" {
			cfg.SourcePath = src
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.Update(c.Context)
	if errors.Is(err, app.ErrNoSource) {
		log.Info().Str("expected", a.Config().SourcePath).
			Msg("no source HTML found; paste the profile's outerHTML there or pass a path to update")
	}
	return err
}

func InlineAction(c *cli.Context) error {
	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	ok, err := a.Inline()
	if err != nil {
		return err
	}
	if !ok {
		log.Info().Msg("no custom.html to inline")
	}
	return nil
}

func MinifyAction(c *cli.Context) error {
	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	reports, err := a.Minify()
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Fprintln(c.App.Writer, "Nothing to minify. Create custom.css or custom.html in the profile folder.")
	}
	for _, r := range reports {
		fmt.Fprint(c.App.Writer, r.String())
	}
	return nil
}

func ShortenAction(c *cli.Context) error {
	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	res, err := a.Shorten()
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, res.Report.String())
	return nil
}

func AnalyzeAction(c *cli.Context) error {
	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	an, err := a.Analyze()
	if err != nil {
		return err
	}
	fmt.Fprint(c.App.Writer, an.String())
	return nil
}

func HistoryAction(c *cli.Context) error {
	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	if id := c.Int64("run"); id > 0 {
		return printRunImages(c, a, id)
	}
	runs, err := a.History(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(c.App.Writer, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tUSER\tFRIENDS\tALBUMS\tGROUPS\tCOMMENTS\tLINKS\tBADGES\tIMAGES")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t@%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format(time.RFC3339), r.Username,
			r.Friends, r.Albums, r.Groups, r.Comments, r.SocialLinks, r.Badges, r.Images)
	}
	return tw.Flush()
}

func printRunImages(c *cli.Context, a *app.App, id int64) error {
	imgs, err := a.RunImages(c.Context, id)
	if err != nil {
		return err
	}
	if len(imgs) == 0 {
		fmt.Fprintf(c.App.Writer, "No images recorded for run %d.\n", id)
		return nil
	}
	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tLOCAL\tURL\tERROR")
	for _, img := range imgs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", img.Status, img.LocalPath, img.URL, img.Error)
	}
	return tw.Flush()
}

func CacheClearAction(c *cli.Context) error {
	a, err := newApp(c, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.ClearCache()
}

func VersionAction(c *cli.Context) error {
	_, err := fmt.Fprintln(c.App.Writer, app.VersionString())
	return err
}
