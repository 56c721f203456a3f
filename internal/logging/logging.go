// Copyright (C) 2020 Jérémie Decock
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.


// Package logging provides the process-wide log writer. Writes to
// stdout unless quieted, and optionally to a file. Does not add
// prefixes, or force newlines
package logging

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// The optional additional file to log into
var logFile   *bufio.Writer
var logFileOS *os.File

// Suppresses stdout output when set
var quiet bool

func SetQuiet(q bool) { quiet=q }

// Enables logging to file
func AlsoToFile(fileName string) (err error) {
	if logFile!=nil {
		err=logFile.Flush()
		if err!=nil { return err }
		err=logFileOS.Close()
		if err!=nil { return err }
	}
	logFileOS, err=os.OpenFile(fileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
	if err!=nil { return err }
	logFile=bufio.NewWriter(logFileOS)
	return nil
}

// Writer returns the destination for pipeline log output, honoring
// the quiet setting and the optional log file
func Writer() io.Writer {
	switch {
	case quiet && logFile!=nil:
		return logFile
	case quiet:
		return io.Discard
	case logFile!=nil:
		return io.MultiWriter(os.Stdout, logFile)
	}
	return os.Stdout
}

func Printf(format string, args ...interface{}) (n int, err error) {
	if !quiet {
		n, err=fmt.Printf(format, args...)
		if err!=nil { return n, err }
	}
	if logFile==nil { return n, nil }
	return fmt.Fprintf(logFile, format, args...)
}

func Print(args ...interface{}) (n int, err error) {
	if !quiet {
		n, err=fmt.Print(args...)
		if err!=nil { return n, err }
	}
	if logFile==nil { return n, nil }
	return fmt.Fprint(logFile, args...)
}

func Fatalf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
	if logFile!=nil {
		fmt.Fprintf(logFile, format, args...)
		logFile.Flush()
		logFileOS.Close()
	}
	os.Exit(1)
}

func Sync() {
	if logFile==nil { return }
	logFile.Flush()
	logFileOS.Sync()
}
