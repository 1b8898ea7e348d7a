// Command zarr inspects and edits Zarr v3 hierarchies on a local
// filesystem or badger store.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-zarr/internal/dtype"
	"github.com/robert-malhotra/go-zarr/store"
	"github.com/robert-malhotra/go-zarr/store/badgerstore"
	"github.com/robert-malhotra/go-zarr/zarr"
)

var (
	flagStore   string
	flagBadger  bool
	flagVerbose bool

	flagShape  string
	flagChunks string
	flagDtype  string
	flagFill   string
	flagCodec  string
	flagLevel  int
	flagShard  string

	flagStart  string
	flagExtent string
	flagValues string
)

func main() {
	root := &cobra.Command{
		Use:           "zarr",
		Short:         "Inspect and edit Zarr v3 arrays and groups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagStore, "store", "", "store directory (required)")
	root.PersistentFlags().BoolVar(&flagBadger, "badger", false, "treat the store directory as a badger database")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log per-chunk activity")
	root.MarkPersistentFlagRequired("store")

	info := &cobra.Command{
		Use:   "info <path>",
		Short: "Print a node's metadata",
		Args:  cobra.ExactArgs(1),
		RunE:  runInfo,
	}

	ls := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a group's children",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}

	create := &cobra.Command{
		Use:   "create <path>",
		Short: "Create an array",
		Args:  cobra.ExactArgs(1),
		RunE:  runCreate,
	}
	create.Flags().StringVar(&flagShape, "shape", "", "array shape, e.g. 100,200 (required)")
	create.Flags().StringVar(&flagChunks, "chunks", "", "chunk shape (default: one chunk)")
	create.Flags().StringVar(&flagDtype, "dtype", "float64", "element data type")
	create.Flags().StringVar(&flagFill, "fill", "", "fill value (default: zero)")
	create.Flags().StringVar(&flagCodec, "codec", "none", "compressor: none, gzip, or zstd")
	create.Flags().IntVar(&flagLevel, "level", 5, "compression level")
	create.Flags().StringVar(&flagShard, "shard", "", "sub-chunk shape for sharded chunks")
	create.MarkFlagRequired("shape")

	get := &cobra.Command{
		Use:   "get <path>",
		Short: "Read a rectangular region",
		Args:  cobra.ExactArgs(1),
		RunE:  runGet,
	}
	get.Flags().StringVar(&flagStart, "start", "", "region origin (default: zeros)")
	get.Flags().StringVar(&flagExtent, "shape", "", "region shape (default: whole array)")

	set := &cobra.Command{
		Use:   "set <path>",
		Short: "Write values into a rectangular region",
		Args:  cobra.ExactArgs(1),
		RunE:  runSet,
	}
	set.Flags().StringVar(&flagStart, "start", "", "region origin (default: zeros)")
	set.Flags().StringVar(&flagExtent, "shape", "", "region shape (required)")
	set.Flags().StringVar(&flagValues, "values", "", "comma-separated element values in row-major order (required)")
	set.MarkFlagRequired("shape")
	set.MarkFlagRequired("values")

	root.AddCommand(info, ls, create, get, set)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func openStore() (store.Store, func(), error) {
	if flagBadger {
		s, err := badgerstore.Open(flagStore)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
	s, err := store.NewFileStore(flagStore)
	if err != nil {
		return nil, nil, err
	}
	return s, func() {}, nil
}

func commonOpts() ([]zarr.Option, error) {
	opts := []zarr.Option{zarr.WithStoreRetry(store.RetryConfig{})}
	if flagVerbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
		opts = append(opts, zarr.WithLogger(logger))
	}
	return opts, nil
}

func parseInts(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid integer list %q: %w", s, err)
		}
		out[i] = n
	}
	return out, nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	opts, err := commonOpts()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	path := args[0]
	arr, err := zarr.OpenArray(ctx, st, path, opts...)
	if err == nil {
		m := arr.Metadata()
		fmt.Printf("array %s\n", path)
		fmt.Printf("  shape:      %v\n", m.Shape)
		fmt.Printf("  chunks:     %v\n", m.ChunkShape)
		fmt.Printf("  dtype:      %s\n", m.DataType)
		fmt.Printf("  fill:       %s\n", dtype.FormatElem(m.DataType, m.Fill))
		for _, c := range m.Codecs {
			fmt.Printf("  codec:      %s %s\n", c.Name, string(c.Configuration))
		}
		if len(m.DimensionNames) > 0 {
			fmt.Printf("  dims:       %v\n", m.DimensionNames)
		}
		for k, v := range m.Attributes {
			fmt.Printf("  attr %s: %v\n", k, v)
		}
		return nil
	}

	grp, gerr := zarr.OpenGroup(ctx, st, path, opts...)
	if gerr != nil {
		return err
	}
	fmt.Printf("group %s\n", path)
	for k, v := range grp.Attributes() {
		fmt.Printf("  attr %s: %v\n", k, v)
	}
	return nil
}

func runLs(cmd *cobra.Command, args []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	opts, err := commonOpts()
	if err != nil {
		return err
	}

	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	grp, err := zarr.OpenGroup(cmd.Context(), st, path, opts...)
	if err != nil {
		return err
	}
	children, err := grp.Children(cmd.Context())
	if err != nil {
		return err
	}
	for _, c := range children {
		fmt.Printf("%-6s %s\n", c.NodeType, c.Name)
	}
	return nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	opts, err := commonOpts()
	if err != nil {
		return err
	}

	shape, err := parseInts(flagShape)
	if err != nil {
		return err
	}
	chunks, err := parseInts(flagChunks)
	if err != nil {
		return err
	}
	dt, err := zarr.ParseDataType(flagDtype)
	if err != nil {
		return err
	}

	if len(chunks) > 0 {
		opts = append(opts, zarr.WithChunkShape(chunks...))
	}
	if flagFill != "" {
		elem, err := dtype.ParseElem(dt, flagFill)
		if err != nil {
			return err
		}
		raw, err := dtype.FormatFill(dt, elem)
		if err != nil {
			return err
		}
		opts = append(opts, zarr.WithFillValue(raw))
	}

	var compressor []zarr.CodecSpec
	switch flagCodec {
	case "none":
	case "gzip":
		compressor = []zarr.CodecSpec{zarr.GzipCodec(flagLevel)}
	case "zstd":
		compressor = []zarr.CodecSpec{zarr.ZstdCodec(flagLevel, true)}
	default:
		return fmt.Errorf("unknown codec %q", flagCodec)
	}

	if flagShard != "" {
		sub, err := parseInts(flagShard)
		if err != nil {
			return err
		}
		inner := append([]zarr.CodecSpec{zarr.BytesCodec("little")}, compressor...)
		opts = append(opts, zarr.WithCodecs(zarr.ShardingCodec(sub, inner...)))
	} else if len(compressor) > 0 {
		opts = append(opts, zarr.WithCodecs(append([]zarr.CodecSpec{zarr.BytesCodec("little")}, compressor...)...))
	}

	arr, err := zarr.CreateArray(cmd.Context(), st, args[0], shape, dt, opts...)
	if err != nil {
		return err
	}
	fmt.Printf("created array %s: shape %v, chunks %v, dtype %s\n",
		args[0], arr.Shape(), arr.ChunkShape(), arr.DataType())
	return nil
}

func runGet(cmd *cobra.Command, args []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	opts, err := commonOpts()
	if err != nil {
		return err
	}

	arr, err := zarr.OpenArray(cmd.Context(), st, args[0], opts...)
	if err != nil {
		return err
	}

	start, err := parseInts(flagStart)
	if err != nil {
		return err
	}
	if start == nil {
		start = make([]int, len(arr.Shape()))
	}
	shape, err := parseInts(flagExtent)
	if err != nil {
		return err
	}
	if shape == nil {
		shape = arr.Shape()
	}

	buf, err := arr.Get(cmd.Context(), start, shape)
	if err != nil {
		return err
	}

	dt := arr.DataType()
	elemSize := dt.Size()
	data := buf.Bytes()
	vals := make([]string, 0, buf.NumElements())
	for off := 0; off < len(data); off += elemSize {
		vals = append(vals, dtype.FormatElem(dt, data[off:off+elemSize]))
	}
	fmt.Println(strings.Join(vals, " "))
	return nil
}

func runSet(cmd *cobra.Command, args []string) error {
	st, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()
	opts, err := commonOpts()
	if err != nil {
		return err
	}

	arr, err := zarr.OpenArray(cmd.Context(), st, args[0], opts...)
	if err != nil {
		return err
	}

	start, err := parseInts(flagStart)
	if err != nil {
		return err
	}
	if start == nil {
		start = make([]int, len(arr.Shape()))
	}
	shape, err := parseInts(flagExtent)
	if err != nil {
		return err
	}

	dt := arr.DataType()
	parts := strings.Split(flagValues, ",")
	data := make([]byte, 0, len(parts)*dt.Size())
	for _, p := range parts {
		elem, err := dtype.ParseElem(dt, strings.TrimSpace(p))
		if err != nil {
			return err
		}
		data = append(data, elem...)
	}
	buf, err := zarr.BufferFromBytes(shape, dt, data)
	if err != nil {
		return err
	}

	if err := arr.Set(cmd.Context(), start, buf); err != nil {
		return err
	}
	fmt.Printf("wrote %d elements at %v\n", buf.NumElements(), start)
	return nil
}
