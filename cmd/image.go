package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/foenixretro/fwimage/pkg/connection"
	"github.com/foenixretro/fwimage/pkg/image"
	"github.com/foenixretro/fwimage/pkg/protocol"
	"github.com/foenixretro/fwimage/pkg/util"
	"github.com/spf13/cobra"
)

var (
	imageTypeFlag    string
	imageSectionFlag int
	imageOffsetFlag  string
	imageLenFlag     string
	imageWholeFlag   bool
)

// imageCmd is the parent command for read-only image inspection:
// info, dump, checksum, and ELF symbol lookup, all built on pkg/image.
var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Inspect firmware images (Intel HEX, SREC, ELF, binary, or live target memory)",
}

var imageInfoCmd = &cobra.Command{
	Use:   "info <file>",
	Short: "Print an image's sections, sizes, and start address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, closeFn, err := openImageArg(args[0])
		if err != nil {
			return err
		}
		defer closeFn()

		fmt.Printf("Type: %s\n", img.Type)
		fmt.Printf("Sections: %d\n", len(img.Sections))
		for i, sec := range img.Sections {
			fmt.Printf("  [%d] base=0x%08X size=0x%X (%d) flags=0x%X\n",
				i, sec.BaseAddress, sec.Size, sec.Size, sec.Flags)
		}
		if img.StartAddressSet {
			fmt.Printf("Start address: 0x%X\n", img.StartAddress)
		}
		return nil
	},
}

var imageDumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Hex dump a range of bytes from one section",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, closeFn, err := openImageArg(args[0])
		if err != nil {
			return err
		}
		defer closeFn()

		if imageSectionFlag < 0 || imageSectionFlag >= len(img.Sections) {
			return fmt.Errorf("section %d out of range (image has %d sections)", imageSectionFlag, len(img.Sections))
		}
		sec := img.Sections[imageSectionFlag]

		offset, err := parseHexOrDefault(imageOffsetFlag, 0)
		if err != nil {
			return fmt.Errorf("invalid --offset: %w", err)
		}
		length, err := parseHexOrDefault(imageLenFlag, sec.Size-offset)
		if err != nil {
			return fmt.Errorf("invalid --len: %w", err)
		}

		buf := make([]byte, length)
		if _, err := img.ReadSection(imageSectionFlag, offset, length, buf); err != nil {
			return fmt.Errorf("failed to read section: %w", err)
		}

		util.HexDump(buf, uint32(sec.BaseAddress)+offset)
		return nil
	},
}

var imageChecksumCmd = &cobra.Command{
	Use:   "checksum <file>",
	Short: "Compute the GDB-compatible CRC-32 of one section or the whole image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, closeFn, err := openImageArg(args[0])
		if err != nil {
			return err
		}
		defer closeFn()

		var buf []byte
		if imageWholeFlag {
			for i, sec := range img.Sections {
				chunk := make([]byte, sec.Size)
				if _, err := img.ReadSection(i, 0, sec.Size, chunk); err != nil {
					return fmt.Errorf("failed to read section %d: %w", i, err)
				}
				buf = append(buf, chunk...)
			}
		} else {
			if imageSectionFlag < 0 || imageSectionFlag >= len(img.Sections) {
				return fmt.Errorf("section %d out of range (image has %d sections)", imageSectionFlag, len(img.Sections))
			}
			sec := img.Sections[imageSectionFlag]
			buf = make([]byte, sec.Size)
			if _, err := img.ReadSection(imageSectionFlag, 0, sec.Size, buf); err != nil {
				return fmt.Errorf("failed to read section: %w", err)
			}
		}

		crc, err := image.CalculateChecksumChunked(buf, cfg.CRCChunkSize, nil, nil)
		if err != nil {
			return fmt.Errorf("checksum failed: %w", err)
		}
		fmt.Printf("0x%08X\n", crc)
		return nil
	},
}

var imageSymbolsCmd = &cobra.Command{
	Use:   "symbols <file> <name...>",
	Short: "Resolve ELF32 section and symbol names to their addresses",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		img, closeFn, err := openImageArg(args[0])
		if err != nil {
			return err
		}
		defer closeFn()

		syms, err := img.ResolveSymbols(args[1:])
		if err != nil {
			return fmt.Errorf("symbol resolution failed: %w", err)
		}

		resolved := make(map[string]uint32, len(syms))
		for _, s := range syms {
			resolved[s.Name] = s.Offset
		}
		for _, name := range args[1:] {
			if addr, ok := resolved[name]; ok {
				fmt.Printf("%s = 0x%X\n", name, addr)
			} else {
				fmt.Printf("%s: not found\n", name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(imageCmd)
	imageCmd.AddCommand(imageInfoCmd)
	imageCmd.AddCommand(imageDumpCmd)
	imageCmd.AddCommand(imageChecksumCmd)
	imageCmd.AddCommand(imageSymbolsCmd)

	imageCmd.PersistentFlags().StringVar(&imageTypeFlag, "type", "", "Image type hint (bin, ihex, s19, elf, mem)")

	imageDumpCmd.Flags().IntVar(&imageSectionFlag, "section", 0, "Section index")
	imageDumpCmd.Flags().StringVar(&imageOffsetFlag, "offset", "", "Offset within section (hex)")
	imageDumpCmd.Flags().StringVar(&imageLenFlag, "len", "", "Number of bytes to dump (hex, default: rest of section)")

	imageChecksumCmd.Flags().IntVar(&imageSectionFlag, "section", 0, "Section index")
	imageChecksumCmd.Flags().BoolVar(&imageWholeFlag, "whole", false, "Checksum every section concatenated together")
}

// openImageArg opens file as an image, honoring --type (or the config's
// image_type when --type is not given). A "mem" type hint does not open
// file as a path: it opens cfg.Port (or --port), enters debug mode, and
// backs the image with a debugPortTarget so section reads pull live
// target memory; file then only names the image in messages.
func openImageArg(file string) (*image.Image, func(), error) {
	typeHint := imageTypeFlag
	if typeHint == "" {
		typeHint = cfg.ImageTypeHint
	}

	if typeHint == "mem" {
		if err := validateConnectionFlags(); err != nil {
			return nil, nil, err
		}
		conn := connection.NewConnection(cfg.Port)
		if err := conn.Open(cfg.Port); err != nil {
			return nil, nil, fmt.Errorf("failed to open connection: %w", err)
		}
		dp := protocol.NewDebugPort(conn, cfg)

		isStopped := util.IsStopped()
		if !isStopped {
			if err := dp.EnterDebug(); err != nil {
				conn.Close()
				return nil, nil, fmt.Errorf("failed to enter debug mode: %w", err)
			}
		}

		img, err := image.Open(file, image.OpenOptions{
			TypeHint:        "mem",
			Target:          debugPortTarget{dp: dp},
			MemoryCacheSize: uint32(cfg.MemoryCacheSize),
			Log:             cliLogger{},
		})
		if err != nil {
			if !isStopped {
				dp.ExitDebug()
			}
			conn.Close()
			return nil, nil, fmt.Errorf("failed to open memory image: %w", err)
		}

		closeFn := func() {
			img.Close()
			if !isStopped {
				dp.ExitDebug()
			}
			conn.Close()
		}
		return img, closeFn, nil
	}

	img, err := image.Open(file, image.OpenOptions{TypeHint: typeHint, Log: cliLogger{}})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", file, err)
	}
	return img, func() { img.Close() }, nil
}

// debugPortTarget adapts protocol.DebugPort to image.Target, chunking
// reads to ReadBlock's 16-bit length limit.
type debugPortTarget struct {
	dp *protocol.DebugPort
}

func (t debugPortTarget) ReadBuffer(address uint32, length uint32) ([]byte, error) {
	const maxChunk = 0xFFFF
	out := make([]byte, 0, length)
	for length > 0 {
		n := length
		if n > maxChunk {
			n = maxChunk
		}
		chunk, err := t.dp.ReadBlock(address, uint16(n))
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
		address += n
		length -= n
	}
	return out, nil
}

// parseHexOrDefault parses s as a hex-encoded uint32, honoring the same
// optional 0x/$ prefixes as util.ParseHexAddress. An empty string
// returns def.
func parseHexOrDefault(s string, def uint32) (uint32, error) {
	if s == "" {
		return def, nil
	}
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	s = strings.TrimPrefix(s, "$")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}
