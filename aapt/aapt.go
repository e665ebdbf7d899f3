package aapt

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bitrise-io/go-utils/command"
	"github.com/bitrise-io/go-utils/errorutil"
	"github.com/bitrise-io/go-utils/log"
	"github.com/bitrise-io/go-utils/pathutil"
)

var packageNameExp = regexp.MustCompile(`^package: name='([^']*)'`)

// Badging holds the manifest facts `aapt dump badging` reports.
type Badging struct {
	PackageName string
	Debuggable  bool
}

// Helper runs an aapt binary.
type Helper struct {
	aaptPth string
}

// NewHelper ...
func NewHelper(aaptPth string) (Helper, error) {
	if exist, err := pathutil.IsPathExists(aaptPth); err != nil {
		return Helper{}, err
	} else if !exist {
		return Helper{}, fmt.Errorf("aapt not exist at: %s", aaptPth)
	}
	return Helper{aaptPth: aaptPth}, nil
}

// ExecuteForOutput ...
func ExecuteForOutput(cmdSlice []string) (string, error) {
	cmd, err := command.NewFromSlice(cmdSlice)
	if err != nil {
		return "", fmt.Errorf("Failed to create command, error: %s", err)
	}

	var errBuf, outputBuf bytes.Buffer
	cmd.SetStdout(&outputBuf)
	cmd.SetStderr(&errBuf)

	err = cmd.Run()
	if err != nil {
		err = fmt.Errorf("%s\n%s\n%s", outputBuf.String(), errBuf.String(), err)
	}

	return outputBuf.String(), err
}

// DumpBadging runs `aapt dump badging` against the apk.
func (helper Helper) DumpBadging(apkPth string) (Badging, error) {
	cmdSlice := []string{helper.aaptPth, "dump", "badging", apkPth}

	log.Debugf("=> %s", command.PrintableCommandArgs(false, cmdSlice))

	out, err := ExecuteForOutput(cmdSlice)
	if err != nil {
		return Badging{}, properError(err, out)
	}

	return parseBadging(out)
}

func properError(err error, out string) error {
	if errorutil.IsExitStatusError(err) {
		return errors.New(out)
	}
	return err
}

func parseBadging(out string) (Badging, error) {
	var (
		badging Badging
		found   bool
	)

	scanner := bufio.NewScanner(strings.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if matches := packageNameExp.FindStringSubmatch(line); len(matches) > 1 {
			badging.PackageName = matches[1]
			found = true
		} else if line == "application-debuggable" {
			badging.Debuggable = true
		}
	}

	if err := scanner.Err(); err != nil {
		return Badging{}, err
	}
	if !found {
		return Badging{}, errors.New("failed to find package name in aapt output")
	}

	return badging, nil
}
