// Command meshseg drives the incremental object segmenter over a synthetic
// growing mesh, persists archived objects to sqlite and writes debug
// renders of the object layer.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/meshseg/internal/config"
	"github.com/banshee-data/meshseg/internal/mesh"
	"github.com/banshee-data/meshseg/internal/monitor"
	"github.com/banshee-data/meshseg/internal/monitoring"
	"github.com/banshee-data/meshseg/internal/pipeline"
	"github.com/banshee-data/meshseg/internal/scenegraph"
	"github.com/banshee-data/meshseg/internal/segment"
	"github.com/banshee-data/meshseg/internal/storage/sqlite"
	"github.com/banshee-data/meshseg/internal/synthetic"
	"github.com/banshee-data/meshseg/internal/timeutil"
	"github.com/banshee-data/meshseg/internal/version"
)

type options struct {
	configPath    string
	labelsPath    string
	dbPath        string
	frames        int
	frameInterval time.Duration
	plotPath      string
	chartPath     string
	listen        string
	verbosity     int
	seed          int64
}

func parseFlags(fs *flag.FlagSet, args []string) (options, bool, error) {
	var o options
	fs.StringVar(&o.configPath, "config", "", "Path to tuning config JSON (default: built-in defaults)")
	fs.StringVar(&o.labelsPath, "labels", "", "Path to label map CSV (default: built-in synthetic map)")
	fs.StringVar(&o.dbPath, "db", "", "Archive database path (default: archive_db_path from -config, else disabled)")
	fs.IntVar(&o.frames, "frames", 120, "Number of synthetic frames to process")
	fs.DurationVar(&o.frameInterval, "frame-interval", 0, "Wall-clock pause between frames (0 = as fast as possible)")
	fs.StringVar(&o.plotPath, "plot", "", "Write a top-down PNG of the object layer to this path")
	fs.StringVar(&o.chartPath, "chart", "", "Write an HTML scatter of the object layer to this path")
	fs.StringVar(&o.listen, "listen", "", "Serve the live object map on this address (e.g. :8080)")
	fs.IntVar(&o.verbosity, "v", 0, "Diagnostic verbosity (0-3)")
	fs.Int64Var(&o.seed, "seed", 1, "Synthetic scene random seed")
	showVersion := fs.Bool("version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return o, false, err
	}
	if o.frames < 0 {
		return o, false, fmt.Errorf("-frames must be non-negative, got %d", o.frames)
	}
	return o, *showVersion, nil
}

// summary is printed at the end of a run.
type summary struct {
	Frames   int
	Objects  int
	Active   int
	Archived int
	Places   int
	RunID    string
}

func loadTuning(o options) (*config.TuningConfig, error) {
	if o.configPath == "" {
		cfg := config.EmptyTuningConfig()
		cfg.Labels = []int{int(synthetic.LabelChair), int(synthetic.LabelTable), int(synthetic.LabelPlant)}
		return cfg, nil
	}
	return config.LoadTuningConfig(o.configPath)
}

func loadLabelMap(o options, cfg *config.TuningConfig) (*mesh.LabelMap, error) {
	path := o.labelsPath
	if path == "" {
		path = cfg.GetLabelMapPath()
	}
	if path == "" {
		return synthetic.DefaultLabelMap(), nil
	}
	return mesh.LoadLabelMapCSV(path)
}

func run(ctx context.Context, o options, out io.Writer) (summary, error) {
	var sum summary

	cfg, err := loadTuning(o)
	if err != nil {
		return sum, fmt.Errorf("load config: %w", err)
	}
	labelMap, err := loadLabelMap(o, cfg)
	if err != nil {
		return sum, fmt.Errorf("load label map: %w", err)
	}
	names := make(map[mesh.Label]string, labelMap.Len())
	for _, e := range labelMap.Entries() {
		names[e.Label] = e.Name
	}

	clock := timeutil.Clock(timeutil.RealClock{})
	cloud := mesh.NewCloud(64 * 1024)
	graph := scenegraph.NewGraph()
	pipe := pipeline.NewObjectPipeline(pipeline.ConfigFromTuning(cfg), cloud, graph, labelMap)
	pipe.Clock = clock

	dbPath := o.dbPath
	if dbPath == "" && cfg.ArchiveDBPath != nil {
		dbPath = cfg.GetArchiveDBPath()
	}
	var store *sqlite.ArchiveStore
	if dbPath != "" {
		store, err = sqlite.Open(dbPath)
		if err != nil {
			return sum, err
		}
		defer store.Close()
		pipe.Archive = store
		sum.RunID = store.RunID()
		log.Printf("archiving to %s (run %s)", dbPath, store.RunID())
	}

	source := monitor.SourceFunc(func() []monitor.Object {
		var objects []monitor.Object
		pipe.View(func(g *scenegraph.Graph, seg *segment.MeshSegmenter) {
			objects = monitor.CollectObjects(g, func(id scenegraph.NodeID) bool {
				_, ok := seg.LastObserved(id)
				return ok
			})
		})
		return objects
	})

	var wg sync.WaitGroup
	if o.listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/debug/objects", monitor.ObjectMapHandler(source, names))
		mux.Handle("/api/objects", monitor.ObjectListHandler(source, names))
		if store != nil {
			mux.Handle("/api/archive", monitor.ArchiveHandler(store))
		}
		server := &http.Server{Addr: o.listen, Handler: mux}

		wg.Add(1)
		go func() {
			defer wg.Done()
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Printf("failed to start server: %v", err)
				}
			}()

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Printf("HTTP server shutdown error: %v", err)
			}
			log.Printf("HTTP server routine stopped")
		}()
		log.Printf("serving object map on http://%s/debug/objects", o.listen)
	}

	gen := synthetic.NewGenerator(cloud, clock, o.seed)
	gen.LabelMap = labelMap

	var ticker timeutil.Ticker
	if o.frameInterval > 0 {
		ticker = clock.NewTicker(o.frameInterval)
		defer ticker.Stop()
	}

	var runErr error
frames:
	for i := 0; i < o.frames; i++ {
		if ticker != nil && i > 0 {
			select {
			case <-ctx.Done():
				break frames
			case <-ticker.C():
			}
		}

		frame := gen.NextFrame()
		if frame.Place != nil {
			if _, err := pipe.AddPlace(*frame.Place, 0); err != nil {
				log.Printf("failed to add place: %v", err)
			} else {
				sum.Places++
			}
		}

		pos := frame.Position
		res, err := pipe.Process(ctx, pipeline.MeshUpdate{
			TimestampNs: frame.TimestampNs,
			Indices:     frame.Indices,
			Position:    &pos,
		})
		if errors.Is(err, context.Canceled) {
			break
		}
		if err != nil {
			runErr = err
			log.Printf("frame %d: %v", frame.Index, err)
		}
		sum.Frames++
		sum.Archived += len(res.Archived)
	}

	objects := source.Objects()
	sum.Objects = len(objects)
	for _, obj := range objects {
		if obj.Active {
			sum.Active++
		}
	}

	if o.plotPath != "" {
		plotter := monitor.NewObjectPlotter(fmt.Sprintf("Objects after %d frames", sum.Frames))
		plotter.LabelNames = names
		if err := plotter.Save(objects, o.plotPath); err != nil {
			return sum, err
		}
	}
	if o.chartPath != "" {
		f, err := os.Create(o.chartPath)
		if err != nil {
			return sum, fmt.Errorf("create chart: %w", err)
		}
		if err := monitor.RenderObjectMap(f, objects, names); err != nil {
			f.Close()
			return sum, fmt.Errorf("render chart: %w", err)
		}
		if err := f.Close(); err != nil {
			return sum, fmt.Errorf("close chart: %w", err)
		}
	}

	fmt.Fprintf(out, "frames=%d vertices=%d objects=%d active=%d archived=%d places=%d\n",
		sum.Frames, cloud.Len(), sum.Objects, sum.Active, sum.Archived, sum.Places)

	if o.listen != "" {
		log.Printf("run complete; serving until interrupted")
		<-ctx.Done()
	}
	wg.Wait()
	return sum, runErr
}

func main() {
	o, showVersion, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if showVersion {
		fmt.Println(version.String())
		return
	}

	monitoring.SetVerbosity(o.verbosity)
	if o.verbosity >= 2 {
		pipeline.SetLogWriters(os.Stderr, os.Stderr, os.Stderr)
	} else {
		pipeline.SetLogWriters(os.Stderr, nil, nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := run(ctx, o, os.Stdout); err != nil {
		log.Fatalf("meshseg: %v", err)
	}
}
