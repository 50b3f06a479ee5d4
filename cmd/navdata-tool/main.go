package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/chrissnell/demandmonitor/internal/log"
	"github.com/chrissnell/demandmonitor/internal/navdata"
)

func main() {
	var (
		dbPath   = flag.String("db", "navdata.db", "Path to the navdata SQLite database")
		command  = flag.String("command", "status", "Command: status, import, airway")
		seedFile = flag.String("seed", "", "Seed JSON file for the import command")
		airway   = flag.String("airway", "", "Airway name for the airway command")
		debug    = flag.Bool("debug", false, "Turn on debugging output")
		helpFlag = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *helpFlag {
		showHelp()
		return
	}

	if err := log.Init(*debug); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Opening the store applies pending schema migrations.
	store, err := navdata.Open(*dbPath, log.Named("navdata"))
	if err != nil {
		log.Fatalf("Failed to open navdata database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	switch *command {
	case "status":
		err = showStatus(ctx, store)
	case "import":
		if *seedFile == "" {
			fmt.Fprintf(os.Stderr, "Error: -seed flag is required for import command\n")
			os.Exit(1)
		}
		err = store.LoadSeedFile(ctx, *seedFile)
	case "airway":
		if *airway == "" {
			fmt.Fprintf(os.Stderr, "Error: -airway flag is required for airway command\n")
			os.Exit(1)
		}
		err = showAirway(ctx, store, *airway)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", *command)
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Command %s failed: %v", *command, err)
	}
}

func showStatus(ctx context.Context, store *navdata.Store) error {
	version, err := store.SchemaVersion()
	if err != nil {
		return err
	}
	fixes, err := store.FixCount(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Schema version: %d\n", version)
	fmt.Printf("Fixes: %d\n", fixes)
	return nil
}

func showAirway(ctx context.Context, store *navdata.Store, name string) error {
	a, err := store.Airway(ctx, name)
	if err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("airway %s not found", name)
	}

	out := struct {
		Name            string            `json:"name"`
		Type            string            `json:"type"`
		TotalDistanceNM float64           `json:"total_distance_nm"`
		Segments        []navdata.Segment `json:"segments"`
	}{a.Name, a.Type, a.TotalDistanceNM(), a.Segments}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func showHelp() {
	fmt.Println("Navdata Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  navdata-tool [flags]")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -db string         Navdata database path (default: navdata.db)")
	fmt.Println("  -command string    Command to run (default: status)")
	fmt.Println("  -seed string       Seed JSON file for import")
	fmt.Println("  -airway string     Airway name for airway")
	fmt.Println("  -debug             Turn on debugging output")
	fmt.Println("  -help              Show this help message")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  status             Show schema version and fix count")
	fmt.Println("  import             Load fixes and airways from a seed file")
	fmt.Println("  airway             Print an airway's segments as JSON")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  navdata-tool -db navdata.db -command import -seed seed.json")
	fmt.Println("  navdata-tool -db navdata.db -command airway -airway J60")
}
