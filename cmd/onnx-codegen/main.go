// Command onnx-codegen drives the emitter over a normalized-IR JSON
// file end to end: load config, load the graph, run the dispatcher
// over every node in visit order, write the generated source.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/mitchellh/colorstring"
	"github.com/schollz/progressbar/v2"

	"github.com/scriptmaster/onnx_codegen/codegen"
	"github.com/scriptmaster/onnx_codegen/internal/irjson"
)

func main() {
	if err := godotenv.Load(".env.local"); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: .env.local: %v", err)
	}

	configPath := flag.String("config", "codegen.yaml", "path to the run-config YAML file")
	inputPath := flag.String("input", "", "path to the normalized-IR JSON file (overrides config)")
	outputPath := flag.String("output", "", "path to write generated source (overrides config)")
	flag.Parse()

	cfg, err := codegen.LoadRunConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if *inputPath != "" {
		cfg.InputPath = *inputPath
	}
	if *outputPath != "" {
		cfg.OutputPath = *outputPath
	}
	if cfg.InputPath == "" {
		log.Fatal("no input IR path given (set input_path in codegen.yaml, ONNX_CODEGEN_INPUT, or -input)")
	}

	graph, err := irjson.Load(cfg.InputPath)
	if err != nil {
		log.Fatalf("load graph: %v", err)
	}
	networkOutput := cfg.NetworkOutput
	if networkOutput == "" {
		networkOutput = graph.NetworkOutput
	}

	out, err := os.Create(cfg.OutputPath)
	if err != nil {
		log.Fatalf("create output: %v", err)
	}
	defer out.Close()

	if err := run(graph, networkOutput, cfg.EmitterConfig, out); err != nil {
		printDiagnostic(err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s (%d nodes)\n", cfg.OutputPath, len(graph.Nodes))
}

// run wraps the same single-threaded, node-visit-order dispatch loop
// codegen.Emit performs, adding a progress bar at the CLI boundary
// without reordering or batching anything the core wouldn't do itself.
func run(graph *irjson.Graph, networkOutput string, econfig codegen.EmitterConfig, out *os.File) error {
	ctx := &codegen.EmissionContext{
		Tensors:       graph.Tensors,
		NetworkOutput: networkOutput,
		Config:        econfig,
		Sink:          codegen.NewSink(out),
		Resolver:      codegen.NewResolver(),
	}

	bar := progressbar.New(len(graph.Nodes))
	for _, node := range graph.Nodes {
		if err := codegen.Dispatcher(ctx, node); err != nil {
			return fmt.Errorf("emit node %s: %w", node, err)
		}
		_ = bar.Add(1)
	}
	return ctx.Sink.Flush()
}

func printDiagnostic(err error) {
	var d *codegen.Diagnostic
	if errors.As(err, &d) {
		colorstring.Fprintf(os.Stderr, "[red]%s[reset]", d.Kind.String())
		if d.Op != "" {
			colorstring.Fprintf(os.Stderr, " op=[yellow]%s[reset]", d.Op)
		}
		if d.Node != "" {
			colorstring.Fprintf(os.Stderr, " node=[yellow]%s[reset]", d.Node)
		}
		if d.Tensor != "" {
			colorstring.Fprintf(os.Stderr, " tensor=[yellow]%s[reset]", d.Tensor)
		}
		if d.Attr != "" {
			colorstring.Fprintf(os.Stderr, " attr=[yellow]%s[reset]", d.Attr)
		}
		fmt.Fprintln(os.Stderr)
		return
	}
	colorstring.Fprintf(os.Stderr, "[red]error:[reset] %s\n", err.Error())
}
