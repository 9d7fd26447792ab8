// urbanctl drives a running Urbanize server from the command line: it manages
// reports, renders the land-use overlay for a viewport and runs planner actions.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/paulmach/orb"

	"github.com/urbanize/urbanize-backend/internal/client"
	"github.com/urbanize/urbanize-backend/internal/config"
	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
	"github.com/urbanize/urbanize-backend/internal/gateway/zones"
	"github.com/urbanize/urbanize-backend/internal/mapview"
	"github.com/urbanize/urbanize-backend/internal/planning"
	"github.com/urbanize/urbanize-backend/internal/reports"
)

const usage = `usage: urbanctl [-server URL] [-user ID] <command> [flags]

commands:
  reports list [-mine]
  reports create -category C -priority P -desc TEXT -lat LAT -lon LON
  reports delete ID
  viewport -lat LAT -lon LON [-zoom Z] [-span DEG]
  plan -lat LAT -lon LON -action ACTION
  ask -lat LAT -lon LON QUESTION
`

func main() {
	_ = godotenv.Load(".env.local")

	server := flag.String("server", envOr("URBANIZE_SERVER", "http://localhost:5000"), "API base URL")
	user := flag.String("user", os.Getenv("URBANIZE_USER"), "user id sent as X-User-Id")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	c := client.New(*server, client.WithUserID(*user))

	var err error
	switch args[0] {
	case "reports":
		err = runReports(ctx, c, *user, args[1:])
	case "viewport":
		err = runViewport(ctx, c, args[1:])
	case "plan":
		err = runPlan(ctx, c, args[1:])
	case "ask":
		err = runAsk(ctx, c, args[1:])
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func runReports(ctx context.Context, c *client.Client, user string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("reports: missing subcommand (list, create, delete)")
	}
	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("reports list", flag.ExitOnError)
		mine := fs.Bool("mine", false, "only reports filed by -user")
		fs.Parse(args[1:])

		var (
			list []reports.Report
			err  error
		)
		if *mine {
			if user == "" {
				return fmt.Errorf("reports list -mine needs -user")
			}
			list, err = c.ListUserReports(ctx, user)
		} else {
			list, err = c.ListReports(ctx)
		}
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCATEGORY\tPRIORITY\tSTATUS\tLAT\tLON\tDESCRIPTION")
		for _, r := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.5f\t%.5f\t%s\n",
				r.ID, r.Category, r.Priority, r.Status, r.Latitude, r.Longitude, r.Description)
		}
		return tw.Flush()

	case "create":
		fs := flag.NewFlagSet("reports create", flag.ExitOnError)
		category := fs.String("category", "", "pothole, construction, park-idea or traffic")
		priority := fs.String("priority", "medium", "low, medium or high")
		desc := fs.String("desc", "", "description")
		email := fs.String("email", "", "reporter email")
		lat := fs.Float64("lat", 0, "latitude")
		lon := fs.Float64("lon", 0, "longitude")
		fs.Parse(args[1:])

		r, err := c.CreateReport(ctx, reports.NewReport{
			UserID:      user,
			UserEmail:   *email,
			Category:    reports.Category(*category),
			Priority:    reports.Priority(*priority),
			Description: *desc,
			Latitude:    lat,
			Longitude:   lon,
		})
		if err != nil {
			return err
		}
		fmt.Printf("✓ Created report %s (%s, %s)\n", r.ID, r.Category, r.Status)
		return nil

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("reports delete: missing id")
		}
		id := args[1]
		feed := mapview.NewReportFeed(c, mapview.NewReconciler(mapview.NewCanvas(mapview.DefaultMinZoom, orb.Bound{})))
		if err := feed.Reload(ctx); err != nil {
			return err
		}
		state, err := feed.Delete(ctx, id)
		fmt.Printf("delete %s: %s (%d reports remain)\n", id, state, len(feed.Reports()))
		return err
	}
	return fmt.Errorf("reports: unknown subcommand %q", args[0])
}

func pointFlags(fs *flag.FlagSet) (lat, lon *float64) {
	return fs.Float64("lat", 0, "latitude"), fs.Float64("lon", 0, "longitude")
}

// runViewport renders the land-use overlay for a square viewport around a point and
// prints the area analytics and the report markers inside it.
func runViewport(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("viewport", flag.ExitOnError)
	lat, lon := pointFlags(fs)
	zoom := fs.Float64("zoom", 15, "map zoom level")
	span := fs.Float64("span", 0.01, "viewport width and height in degrees")
	fs.Parse(args)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	half := *span / 2
	view := orb.Bound{
		Min: orb.Point{*lon - half, *lat - half},
		Max: orb.Point{*lon + half, *lat + half},
	}
	canvas := mapview.NewCanvas(*zoom, view)

	src := mapview.NewOverpassLandUse(zones.NewOverpass(cfg.OverpassEndpoint, nil))
	ctrl := mapview.NewController(canvas, src, mapview.Options{})
	defer ctrl.Close()
	if err := ctrl.Refresh(ctx); err != nil {
		return fmt.Errorf("land use: %w", err)
	}

	recon := mapview.NewReconciler(canvas)
	feed := mapview.NewReportFeed(c, recon)
	if err := feed.Reload(ctx); err != nil {
		return fmt.Errorf("reports: %w", err)
	}

	s := ctrl.Snapshot()
	fmt.Printf("Viewport %.4f,%.4f to %.4f,%.4f at zoom %g\n", view.Bottom(), view.Left(), view.Top(), view.Right(), *zoom)
	if !canvas.HasLayer(mapview.LandUseLayer) {
		fmt.Printf("Zoomed out below %g: land-use overlay hidden\n", mapview.DefaultMinZoom)
	} else {
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, row := range []struct {
			name string
			m2   float64
		}{
			{"residential", s.Residential},
			{"commercial", s.Commercial},
			{"industrial", s.Industrial},
			{"green", s.Green},
			{"construction", s.Construction},
			{"total", s.Total},
		} {
			fmt.Fprintf(tw, "%s\t%s\n", row.name, formatArea(row.m2))
		}
		tw.Flush()
	}

	inView := 0
	for _, r := range feed.Reports() {
		if view.Contains(orb.Point{r.Longitude, r.Latitude}) {
			inView++
		}
	}
	fmt.Printf("Markers: %d drawn, %d inside viewport\n", recon.Registry().Len(), inView)
	return nil
}

func formatArea(m2 float64) string {
	if m2 > 1_000_000 {
		return fmt.Sprintf("%.2f km²", m2/1_000_000)
	}
	return fmt.Sprintf("%.2f ha", m2/10_000)
}

func runPlan(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	lat, lon := pointFlags(fs)
	action := fs.String("action", string(planning.UrbanOptimization), "one of urban-optimization, congestion-prediction, traffic-analysis, zone-analysis")
	asJSON := fs.Bool("json", false, "print the transcript as JSON")
	fs.Parse(args)

	a, err := planning.ParseAction(*action)
	if err != nil {
		return err
	}

	// A planner session: enter select mode and click the point.
	sess := planning.NewSession(planning.Planner)
	sess.ToggleSelect()
	intent := sess.Click(provider.Coordinates{Lat: *lat, Lon: *lon})

	o := planning.NewOrchestrator(c, intent.At)
	runErr := o.Run(ctx, a)
	printTranscript(o.Transcript(), *asJSON)
	return runErr
}

func runAsk(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	lat, lon := pointFlags(fs)
	fs.Parse(args)

	question := strings.Join(fs.Args(), " ")
	if question == "" {
		return fmt.Errorf("ask: missing question")
	}
	o := planning.NewOrchestrator(c, provider.Coordinates{Lat: *lat, Lon: *lon})
	err := o.Ask(ctx, question)
	printTranscript(o.Transcript(), false)
	return err
}

func printTranscript(t *planning.Transcript, asJSON bool) {
	msgs := t.Messages()
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(msgs)
		return
	}
	for _, m := range msgs[1:] {
		fmt.Printf("[%s]\n%s\n\n", m.Role, m.Content)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
