// cmd/skillet/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"skillet/internal/config"
	"skillet/internal/contrib"
	"skillet/internal/hooks"
	"skillet/internal/logging"
	"skillet/internal/metrics"
	"skillet/internal/scaffold"
	"skillet/internal/server"
	"skillet/internal/site"
	"skillet/internal/story"
)

var version = "dev"

// Globals are the flags every command accepts.
type Globals struct {
	Config   string           `short:"c" help:"Configuration file path" default:"config.yaml"`
	Quiet    bool             `short:"q" help:"Only log errors" xor:"level"`
	Warnings bool             `help:"Log warnings and errors (the default)" xor:"level"`
	Verbose  bool             `short:"v" help:"Log progress" xor:"level"`
	Debug    bool             `help:"Log everything" xor:"level"`
	Log      string           `short:"l" help:"Append the log to this file instead of stdout" type:"path"`
	Version  kong.VersionFlag `help:"Show version and exit"`
}

// CLI is the command line.
type CLI struct {
	Globals

	Build BuildCmd `cmd:"" default:"1" help:"Build the site (the default command)"`
	Serve ServeCmd `cmd:"" help:"Build the site, serve it and rebuild on change"`
	New   NewCmd   `cmd:"" help:"Create a new site or page"`
	Story StoryCmd `cmd:"" help:"Compile the story file into content files"`
}

// app is bound into every command's Run.
type app struct {
	config string
	log    *logrus.Logger
}

// loadConfig reads the site config. Directories in it are relative to
// the working directory.
func (a *app) loadConfig() (*config.Site, error) {
	opts, err := config.Load(a.config)
	if err != nil {
		return nil, err
	}
	a.log.Debugf("loaded config %s", a.config)
	return opts, nil
}

// build runs one full build with the hooks the config enables.
func (a *app) build(rec *metrics.Recorder) (site.Result, error) {
	opts, err := a.loadConfig()
	if err != nil {
		return site.Result{}, err
	}
	reg := hooks.NewRegistry()
	if err := contrib.Install(reg, opts.Hooks, opts, a.log); err != nil {
		return site.Result{}, err
	}
	return site.New(opts, reg, nil, a.log, rec).Run()
}

type BuildCmd struct{}

func (c *BuildCmd) Run(a *app) error {
	res, err := a.build(nil)
	if err != nil {
		return err
	}
	fmt.Printf("Built %d pages, wrote %d files", len(res.Pages), res.Written)
	if res.Dropped > 0 || len(res.Orphans) > 0 {
		fmt.Printf(" (%d dropped, %d orphaned)", res.Dropped, len(res.Orphans))
	}
	fmt.Println()
	return nil
}

type ServeCmd struct {
	Address string `help:"Address to listen on" default:"localhost"`
	Port    int    `short:"p" help:"Port to listen on" default:"8000"`
}

func (c *ServeCmd) Run(a *app) error {
	opts, err := a.loadConfig()
	if err != nil {
		return err
	}
	rec := metrics.NewRecorder(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Options{
		Address:   c.Address,
		Port:      c.Port,
		OutputDir: opts.OutputDir,
		Watch:     []string{opts.ContentDir, opts.TemplateDir, opts.MediaDir, opts.StoryFile, a.config},
		Build: func() error {
			_, err := a.build(rec)
			return err
		},
		Metrics: rec.Handler(),
		Log:     a.log,
	})
	fmt.Printf("Serving site on http://%s\n", srv.Addr())
	return srv.Run(ctx)
}

type NewCmd struct {
	Site NewSiteCmd `cmd:"" help:"Create a new site"`
	Page NewPageCmd `cmd:"" help:"Create a new content file from an archetype"`
}

type NewSiteCmd struct {
	Dir string `arg:"" help:"Directory for the new site" type:"path"`
}

func (c *NewSiteCmd) Run(a *app) error {
	files, err := scaffold.CreateNewSite(c.Dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		a.log.Infof("created %s", filepath.Join(c.Dir, f))
	}
	fmt.Println("Site scaffolded. You can now:")
	fmt.Println("  cd", c.Dir)
	fmt.Println("  skillet serve")
	return nil
}

type NewPageCmd struct {
	Type  string `arg:"" help:"Page type, also used as its category and directory"`
	Title string `arg:"" help:"Page title"`
}

func (c *NewPageCmd) Run(a *app) error {
	opts, err := a.loadConfig()
	if err != nil {
		return err
	}
	path, err := scaffold.CreateNewContent(opts, c.Type, c.Title, time.Now())
	if err != nil {
		return err
	}
	fmt.Println("Created:", path)
	return nil
}

type StoryCmd struct{}

func (c *StoryCmd) Run(a *app) error {
	opts, err := a.loadConfig()
	if err != nil {
		return err
	}
	pages, err := story.Load(opts.StoryFile)
	if err != nil {
		return err
	}
	n, err := story.WriteFiles(pages, opts.ContentDir)
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %d story pages to %s\n", n, opts.ContentDir)
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("skillet"),
		kong.Description("A static site generator."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	log, closer, err := logging.New(logging.Level(cli.Quiet, cli.Verbose, cli.Debug), cli.Log)
	ctx.FatalIfErrorf(err)

	err = ctx.Run(&app{config: cli.Config, log: log})
	closer.Close()
	ctx.FatalIfErrorf(err)
}
