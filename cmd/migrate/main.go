package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"camvault/internal/app"
	"camvault/internal/config"
	"camvault/internal/dto"
	"camvault/internal/logger"
)

// importTag marks photos that were bulk-imported rather than captured.
const importTag = "imported"

type ingester interface {
	Ingest(ctx context.Context, req dto.IngestRequest) (*dto.IngestResult, error)
}

type report struct {
	Imported int
	Skipped  int
	Failed   map[string]error
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run returns the process exit code so deferred cleanup happens before exit.
func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	imagesDir := fs.String("dir", "static/images", "Directory containing images")
	cameraName := fs.String("camera-name", "", "Camera name recorded on every imported photo")
	cameraURL := fs.String("camera-url", "", "Camera URL recorded on every imported photo")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *cameraName == "" || *cameraURL == "" {
		log.Printf("-camera-name and -camera-url are required")
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	appLogger, err := logger.NewLogger(cfg)
	if err != nil {
		log.Printf("Failed to initialize logger: %v", err)
		return 1
	}
	defer appLogger.Close()

	ctx := context.Background()
	application, err := app.NewApp(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to open stores: %v", err)
		return 1
	}
	defer application.Close()

	fmt.Fprintf(out, "Importing images from %s as %q\n", *imagesDir, *cameraName)

	rep, err := importDir(ctx, application.Pipeline(), *imagesDir, *cameraName, *cameraURL)
	if err != nil {
		appLogger.Error("Failed to import images: %v", err)
		return 1
	}

	fmt.Fprintf(out, "Imported %d images\n", rep.Imported)
	if rep.Skipped > 0 {
		fmt.Fprintf(out, "Skipped %d files (not .jpg, .jpeg or .png)\n", rep.Skipped)
	}
	if len(rep.Failed) > 0 {
		fmt.Fprintf(out, "Failed %d images:\n", len(rep.Failed))
		names := make([]string, 0, len(rep.Failed))
		for name := range rep.Failed {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "   - %s: %v\n", name, rep.Failed[name])
		}
		return 1
	}
	return 0
}

// importDir ingests every image file directly inside dir. A failed file does not stop the import.
func importDir(ctx context.Context, pipeline ingester, dir, cameraName, cameraURL string) (report, error) {
	rep := report{Failed: make(map[string]error)}

	files, err := os.ReadDir(dir)
	if err != nil {
		return rep, fmt.Errorf("failed to read images directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() || !isImage(file.Name()) {
			rep.Skipped++
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			rep.Failed[file.Name()] = err
			continue
		}

		_, err = pipeline.Ingest(ctx, dto.IngestRequest{
			CameraName:  cameraName,
			CameraURL:   cameraURL,
			Image:       data,
			ContentType: http.DetectContentType(data),
			Tags:        []string{importTag},
		})
		if err != nil {
			rep.Failed[file.Name()] = err
			continue
		}
		rep.Imported++
	}
	return rep, nil
}

func isImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	default:
		return false
	}
}
