// Command mp4tag inspects and edits iTunes-style tags in MP4/M4A files.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	flags "github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"

	"github.com/jiuerd/mp4tag"
	"github.com/jiuerd/mp4tag/streaminfo"
)

type options struct {
	CoverOutput string `short:"o" long:"cover-output" description:"A path to write the covr artwork to, if present"`
}

func main() {
	log := logger.New()

	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[OPTIONS] dump|probe|set <file> [key=value ...]"

	args, err := parser.Parse()
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: mp4tag dump|probe|set <file> [key=value ...]")
		os.Exit(1)
	}

	cmd, path := args[0], args[1]
	switch cmd {
	case "dump":
		runDump(log, path, opts)
	case "probe":
		runProbe(log, path)
	case "set":
		runSet(log, path, args[2:])
	default:
		log.Error(fmt.Sprintf("unknown command %q", cmd))
		os.Exit(1)
	}
}

func runDump(log logger.Logger, path string, opts options) {
	c, err := mp4tag.Open(path)
	if err != nil {
		log.Err(err).Fatal("open error")
	}
	defer c.Close()

	tree, err := mp4tag.Parse(c)
	if err != nil {
		log.Err(err).Fatal("parse error")
	}

	tags, err := mp4tag.ParseTags(c, tree)
	if err != nil && err != mp4tag.ErrNoTags {
		log.Err(err).Fatal("tag parse error")
	}
	for key, values := range tags {
		fmt.Printf("%s: %v\n", key, values)
	}

	info, err := streaminfo.Decode(c, tree)
	if err != nil && err != mp4tag.ErrNoAudioTrack {
		log.Err(err).Fatal("stream info error")
	}
	if info != nil {
		fmt.Printf("duration=%.2fs rate=%dHz channels=%d bitrate=%dbps\n",
			info.Duration, info.SampleRate, info.Channels, info.Bitrate)
	}

	if opts.CoverOutput != "" {
		writeCover(log, tags, opts.CoverOutput)
	}
}

func writeCover(log logger.Logger, tags mp4tag.TagMap, out string) {
	for _, v := range tags["covr"] {
		cover, ok := v.(mp4tag.Cover)
		if !ok {
			continue
		}
		if err := os.WriteFile(out, cover.Data, 0o644); err != nil {
			log.Err(err).Fatal("cover write error")
		}
		log.Info("wrote cover art", logger.Data{"path": out})
		return
	}
}

func runProbe(log logger.Logger, path string) {
	header, err := os.ReadFile(path)
	if err != nil {
		log.Err(err).Fatal("read error")
	}
	if len(header) > 4096 {
		header = header[:4096]
	}
	fmt.Printf("score=%d\n", mp4tag.Score(header))

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		log.Err(err).Fatal("mimetype detect error")
	}
	fmt.Printf("mimetype=%s\n", mtype.String())
}

func runSet(log logger.Logger, path string, pairs []string) {
	c, err := mp4tag.OpenWrite(path)
	if err != nil {
		log.Err(err).Fatal("open error")
	}
	defer c.Close()

	tree, err := mp4tag.Parse(c)
	if err != nil {
		log.Err(err).Fatal("parse error")
	}

	tags, err := mp4tag.ParseTags(c, tree)
	if err != nil && err != mp4tag.ErrNoTags {
		log.Err(err).Fatal("tag parse error")
	}
	if tags == nil {
		tags = make(mp4tag.TagMap)
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			log.Error(fmt.Sprintf("ignoring malformed key=value pair %q", pair))
			continue
		}
		tags[key] = []mp4tag.Value{mp4tag.TextValue(value)}
	}

	payload, err := mp4tag.RenderTags(tags)
	if err != nil {
		log.Err(err).Fatal("render error")
	}
	if err := mp4tag.Save(c, tree, payload); err != nil {
		log.Err(err).Fatal("save error")
	}
	log.Info("saved tags", logger.Data{"path": path, "count": len(pairs)})
}
