// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// partition_inspect prints how an array of a given shape is split over a set of virtual devices.
//
// The partitioning is either derived from a PartitionSpec (-dim_shards, -permutation and -axis_sizes) or
// built as a tiled partitioning (-tiles, -tile_devices and -replicate_last).
//
// Example:
//
//	partition_inspect -shape=9,16 -dim_shards=2,4 -permutation=0 -axis_sizes=8 -num_processes=2
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/shardmap/pkg/core/devices"
	"github.com/gomlx/shardmap/pkg/core/distributed"
	"github.com/gomlx/shardmap/pkg/core/partition"
	"github.com/gomlx/shardmap/pkg/core/shapes"
	"github.com/gomlx/shardmap/pkg/support/xslices"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagShape = xslices.Flag("shape", nil, "Comma-separated dimensions of the global array.", parseInt64)

	flagDimShards   = xslices.Flag("dim_shards", nil, "Number of shards per array dimension of a PartitionSpec.", parseInt64)
	flagPermutation = xslices.Flag("permutation", nil, "Mesh axes of the PartitionSpec, from minor to major.", strconv.Atoi)
	flagAxisSizes   = xslices.Flag("axis_sizes", nil, "Sizes of the mesh axes of the PartitionSpec.", strconv.Atoi)

	flagTiles       = xslices.Flag("tiles", nil, "Number of tiles per array dimension of a tiled partitioning.", parseInt64)
	flagTileDevices = xslices.Flag("tile_devices", nil, "Device position of each tile, in row-major order. "+
		"Defaults to tile i on device i.", strconv.Atoi)
	flagReplicateLast = flag.Bool("replicate_last", false, "The last value of -tiles is a replication factor.")

	flagNumProcesses = flag.Int("num_processes", 1, "Number of processes the virtual devices are split over.")
	flagLocalProcess = flag.Int("local_process", 0, "Process whose devices are addressable.")
	flagAddressable  = flag.Bool("addressable", false, "List only the shards on addressable devices.")
	flagMemoryKind   = flag.String("memory_kind", "", "Memory kind of the shards. Empty for the device default.")
	flagDType        = flag.String("dtype", "float32", "DType of the array, used to report memory sizes.")
	flagNoColor      = flag.Bool("no_color", false, "Disable colors in the output.")
)

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagNoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	if len(*flagShape) == 0 {
		klog.Errorf("Missing -shape. See 'partition_inspect -help'.")
		os.Exit(1)
	}
	cfg := config{
		shape:           shapes.Make(*flagShape...),
		dimShards:       *flagDimShards,
		permutation:     *flagPermutation,
		axisSizes:       *flagAxisSizes,
		tiles:           *flagTiles,
		tileDevices:     *flagTileDevices,
		replicateLast:   *flagReplicateLast,
		numProcesses:    *flagNumProcesses,
		localProcess:    *flagLocalProcess,
		memoryKind:      devices.NewMemoryKind(*flagMemoryKind),
		dtype:           must.M1(dtypes.DTypeString(*flagDType)),
		onlyAddressable: *flagAddressable,
	}
	p, err := cfg.partitioning()
	if err != nil {
		klog.Fatalf("Failed to build partitioning: %+v", err)
	}
	if err := report(os.Stdout, cfg, p); err != nil {
		klog.Fatalf("Failed to disassemble %s: %+v", cfg.shape, err)
	}
}

// config holds the parsed command line.
type config struct {
	shape           shapes.Shape
	dimShards       []int64
	permutation     []int
	axisSizes       []int
	tiles           []int64
	tileDevices     []int
	replicateLast   bool
	numProcesses    int
	localProcess    int
	memoryKind      devices.MemoryKind
	dtype           dtypes.DType
	onlyAddressable bool
}

// partitioning builds the virtual devices and the partitioning selected by the configuration.
func (cfg config) partitioning() (partition.Partitioning, error) {
	switch {
	case len(cfg.dimShards) > 0 && len(cfg.tiles) > 0:
		return nil, errors.New("-dim_shards and -tiles are mutually exclusive")

	case len(cfg.dimShards) > 0:
		spec, err := distributed.NewPartitionSpec(cfg.dimShards,
			distributed.MinorToMajor{Permutation: cfg.permutation, AxisSizes: cfg.axisSizes})
		if err != nil {
			return nil, err
		}
		if err := spec.CanApplyTo(cfg.shape, spec.NumDevices()); err != nil {
			return nil, err
		}
		devs, err := cfg.devices(spec.NumDevices())
		if err != nil {
			return nil, err
		}
		return partition.NewSpecDerived(devs, cfg.memoryKind, spec)

	case len(cfg.tiles) > 0:
		numDevices := 1
		for _, tiles := range cfg.tiles {
			numDevices *= int(tiles)
		}
		devs, err := cfg.devices(numDevices)
		if err != nil {
			return nil, err
		}
		tileDevices := cfg.tileDevices
		if len(tileDevices) == 0 {
			// An empty -tile_devices flag means the default assignment.
			tileDevices = nil
		}
		return partition.NewTiled(devs, cfg.memoryKind, cfg.tiles, tileDevices, cfg.replicateLast)

	default:
		return nil, errors.New("either -dim_shards or -tiles must be given")
	}
}

func (cfg config) devices(numDevices int) (*devices.List, error) {
	devs, err := devices.NewVirtualDevices(numDevices, cfg.numProcesses, cfg.localProcess)
	if err != nil {
		return nil, err
	}
	return devices.NewList(devs...), nil
}

// report writes the summary and the per-shard tables of p applied to the configured shape.
func report(w io.Writer, cfg config, p partition.Partitioning) error {
	semantics := partition.AllShards
	if cfg.onlyAddressable {
		semantics = partition.AddressableShards
	}
	shards, err := p.Disassemble(cfg.shape, semantics)
	if err != nil {
		return err
	}
	domains, err := p.IndexDomains(cfg.shape, semantics)
	if err != nil {
		return err
	}

	summary := newPlainTable(false, lipgloss.Right, lipgloss.Left)
	summary.Row("partitioning", p.String())
	summary.Row("shape", fmt.Sprintf("%s %s", cfg.dtype, cfg.shape))
	summary.Row("# bytes", humanize.Bytes(uint64(cfg.shape.Memory(cfg.dtype))))
	if shardShape, err := p.ShardShape(cfg.shape); err == nil {
		summary.Row("shard shape", shardShape.String())
	} else {
		klog.V(1).Infof("ShardShape(%s): %v", cfg.shape, err)
		summary.Row("shard shape", "uneven")
	}
	summary.Row("fully replicated", strconv.FormatBool(p.IsFullyReplicated()))
	summary.Row("devices", p.Devices().String())
	summary.Row("memory kind", p.MemoryKind().String())
	_, _ = fmt.Fprintln(w, titleStyle.Render("Summary"))
	_, _ = fmt.Fprintln(w, summary.Render())

	// Empty shards are highlighted.
	table := newPlainTableWithReds(true, lipgloss.Right, lipgloss.Right, lipgloss.Left, lipgloss.Left, lipgloss.Right)
	table.Table.Headers("Device", "Process", "Index Domain", "Shard Shape", "Bytes")
	for i, shard := range shards {
		device := shard.Partitioning.Devices().At(0)
		table.Row(shard.Shape.NumElements() == 0,
			strconv.Itoa(int(device.ID())),
			strconv.Itoa(device.ProcessIndex()),
			domains[i].String(),
			shard.Shape.String(),
			humanize.Bytes(uint64(shard.Shape.Memory(cfg.dtype))))
	}
	_, _ = fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Shards (%s)", semantics)))
	_, _ = fmt.Fprintln(w, table.Table.Render())
	return nil
}
