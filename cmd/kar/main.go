// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command kar packs resource directories into kar archives, lists and
// extracts them. Archives made from a project resource directory can be
// used as search roots with KORU_ARCHIVES.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/devblok/korufx/utility/kar"
)

func main() {
	os.Exit(main1())
}

func main1() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func currentUserName() string {
	u, err := user.Current()
	if err != nil || u.Name == "" {
		return "unknown"
	}
	return u.Name
}

type command struct {
	author   string
	version  int64
	extract  string
	unpack   string
	compress string
	list     bool
	dstFile  string
	silent   bool
	force    bool

	stdout io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := command{stdout: stdout}
	fs := flag.NewFlagSet("kar", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&cmd.author, "author", currentUserName(), "Set the author of the package when compressing")
	fs.Int64Var(&cmd.version, "version", 1, "Archive version number to create it with")
	fs.StringVar(&cmd.extract, "e", "", "Extract the file given to standard output")
	fs.StringVar(&cmd.unpack, "x", "", "Extract every file into the directory given")
	fs.StringVar(&cmd.compress, "c", "", "Compress the given file/folder")
	fs.BoolVar(&cmd.list, "l", false, "List the archive contents")
	fs.StringVar(&cmd.dstFile, "f", "out.kar", "Archive file")
	fs.BoolVar(&cmd.silent, "s", false, "Silent")
	fs.BoolVar(&cmd.force, "force", false, "Overwrite the destination file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ops := 0
	for _, set := range []bool{cmd.extract != "", cmd.unpack != "", cmd.compress != "", cmd.list} {
		if set {
			ops++
		}
	}
	if ops == 0 {
		fs.PrintDefaults()
		return 2
	}
	if ops > 1 {
		fmt.Fprintln(stderr, "kar: only one operation at a time")
		return 2
	}

	var err error
	switch {
	case cmd.compress != "":
		err = cmd.compressFiles()
	case cmd.list:
		err = cmd.listFiles()
	case cmd.extract != "":
		err = cmd.extractFile()
	case cmd.unpack != "":
		err = cmd.unpackFiles()
	}
	if err != nil {
		fmt.Fprintf(stderr, "kar: %v\n", err)
		return 1
	}
	return 0
}

func (cmd *command) compressFiles() error {
	if _, err := os.Stat(cmd.dstFile); err == nil && !cmd.force {
		return fmt.Errorf("%s exists, will not overwrite", cmd.dstFile)
	}

	info, err := os.Stat(cmd.compress)
	if err != nil {
		return err
	}
	base := cmd.compress
	if !info.IsDir() {
		base = filepath.Dir(cmd.compress)
	}

	var filesToCompress []string
	if err := filepath.Walk(cmd.compress, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			filesToCompress = append(filesToCompress, path)
		}
		return nil
	}); err != nil {
		return err
	}
	if len(filesToCompress) == 0 {
		return errors.New("nothing to compress")
	}

	karBuilder, err := kar.NewBuilder(kar.Header{
		Author:      cmd.author,
		DateCreated: time.Now().Unix(),
		Version:     cmd.version,
	})
	if err != nil {
		return err
	}
	defer karBuilder.Close()

	for _, ftc := range filesToCompress {
		rel, err := filepath.Rel(base, ftc)
		if err != nil {
			return err
		}
		if err := addFile(karBuilder, filepath.ToSlash(rel), ftc); err != nil {
			return err
		}
	}

	dst, err := os.Create(cmd.dstFile)
	if err != nil {
		return err
	}
	if _, err := karBuilder.WriteTo(dst); err != nil {
		dst.Close()
		os.Remove(cmd.dstFile)
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}
	if !cmd.silent {
		fmt.Fprintf(cmd.stdout, "packed %d files into %s\n", karBuilder.Len(), cmd.dstFile)
	}
	return nil
}

func addFile(b *kar.Builder, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return b.Add(name, f)
}

func (cmd *command) listFiles() error {
	f, err := kar.OpenFile(cmd.dstFile)
	if err != nil {
		return err
	}
	defer f.Close()

	header := f.Archive.Header()
	if !cmd.silent {
		fmt.Fprintf(cmd.stdout, "author: %s, version: %d, created: %s\n",
			header.Author, header.Version, time.Unix(header.DateCreated, 0).UTC().Format(time.RFC3339))
	}
	tw := tabwriter.NewWriter(cmd.stdout, 0, 4, 2, ' ', 0)
	for _, name := range f.Archive.Names() {
		entry, err := f.Archive.Stat(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\n", entry.Name, entry.Size, entry.CompressedSize)
	}
	return tw.Flush()
}

func (cmd *command) extractFile() error {
	f, err := kar.OpenFile(cmd.dstFile)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := f.Archive.Open(cmd.extract)
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.extract, err)
	}
	defer r.Close()
	_, err = io.Copy(cmd.stdout, r)
	return err
}

func (cmd *command) unpackFiles() error {
	f, err := kar.OpenFile(cmd.dstFile)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, name := range f.Archive.Names() {
		if err := unpackFile(f.Archive, name, cmd.unpack); err != nil {
			return err
		}
	}
	if !cmd.silent {
		fmt.Fprintf(cmd.stdout, "extracted %d files into %s\n", len(f.Archive.Names()), cmd.unpack)
	}
	return nil
}

func unpackFile(a *kar.Archive, name, dir string) error {
	dst := filepath.Join(dir, filepath.FromSlash(name))
	if rel, err := filepath.Rel(dir, dst); err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("%s: refusing to extract outside %s", name, dir)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	r, err := a.Open(name)
	if err != nil {
		return err
	}
	defer r.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
