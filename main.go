package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/bitrise-io/go-steputils/stepconf"
	"github.com/bitrise-io/go-steputils/tools"
	"github.com/bitrise-io/go-utils/log"
	"github.com/bitrise-io/go-utils/pathutil"
	"github.com/bitrise-steplib/steps-apk-manifest-info/aapt"
	"github.com/bitrise-tools/go-android/sdk"
)

// -----------------------
// --- Models
// -----------------------

type configs struct {
	BuildArtifactPath  string `env:"android_app,required"`
	FailOnDebuggable   bool   `env:"fail_on_debuggable,opt[true,false]"`
	VerifyWithAAPT     bool   `env:"verify_with_aapt,opt[true,false]"`
	InspectConcurrency int    `env:"inspect_concurrency"`

	VerboseLog bool `env:"verbose_log,opt[true,false]"`
}

func splitElements(list []string, sep string) (s []string) {
	for _, e := range list {
		s = append(s, strings.Split(e, sep)...)
	}
	return
}

func parseAppList(list string) (apps []string) {
	list = strings.TrimSpace(list)
	if len(list) == 0 {
		return nil
	}

	s := []string{list}
	for _, sep := range []string{"\n", `\n`, "|"} {
		s = splitElements(s, sep)
	}

	for _, app := range s {
		app = strings.TrimSpace(app)
		if len(app) > 0 {
			apps = append(apps, app)
		}
	}
	return
}

// -----------------------
// --- Functions
// -----------------------

func failf(format string, v ...interface{}) {
	log.Errorf(format, v...)
	os.Exit(1)
}

func validate(cfg configs) error {
	buildArtifactPaths := parseAppList(cfg.BuildArtifactPath)
	if len(buildArtifactPaths) == 0 {
		return errors.New("no APK path given")
	}

	for _, buildArtifactPath := range buildArtifactPaths {
		if exist, err := pathutil.IsPathExists(buildArtifactPath); err != nil {
			return fmt.Errorf("failed to check if BuildArtifactPath exist at: %s, error: %s", buildArtifactPath, err)
		} else if !exist {
			return fmt.Errorf("BuildArtifactPath not exist at: %s", buildArtifactPath)
		}

		// App Bundles store their manifest as protobuf, not binary XML
		if strings.EqualFold(filepath.Ext(buildArtifactPath), ".aab") {
			return fmt.Errorf("App Bundles are not supported: %s", buildArtifactPath)
		}
	}

	if cfg.InspectConcurrency < 0 {
		return fmt.Errorf("inspect_concurrency must not be negative: %d", cfg.InspectConcurrency)
	}
	return nil
}

func inspectConcurrency(cfg configs) int {
	if cfg.InspectConcurrency == 0 {
		return runtime.NumCPU()
	}
	return cfg.InspectConcurrency
}

func compareBadging(info apkInfo, badging aapt.Badging) error {
	if info.PackageName != badging.PackageName {
		return fmt.Errorf("package name mismatch for %s: manifest: %s, aapt: %s", info.Path, info.PackageName, badging.PackageName)
	}
	if info.Debuggable != badging.Debuggable {
		return fmt.Errorf("debuggable mismatch for %s: manifest: %t, aapt: %t", info.Path, info.Debuggable, badging.Debuggable)
	}
	return nil
}

func verifyWithAAPT(infos []apkInfo) error {
	androidHome := os.Getenv("ANDROID_HOME")
	log.Printf("android_home: %s", androidHome)

	androidSDK, err := sdk.New(androidHome)
	if err != nil {
		return fmt.Errorf("failed to create SDK model: %s", err)
	}

	aaptPth, err := androidSDK.LatestBuildToolPath("aapt")
	if err != nil {
		return fmt.Errorf("failed to find AAPT path: %s", err)
	}
	log.Printf("aapt: %s", aaptPth)

	helper, err := aapt.NewHelper(aaptPth)
	if err != nil {
		return err
	}

	for _, info := range infos {
		badging, err := helper.DumpBadging(info.Path)
		if err != nil {
			return fmt.Errorf("failed to dump badging of %s: %s", info.Path, err)
		}
		if err := compareBadging(info, badging); err != nil {
			return err
		}
		log.Donef("- %s matches aapt", info.Path)
	}
	return nil
}

func debuggableApps(infos []apkInfo) (pths []string) {
	for _, info := range infos {
		if info.Debuggable {
			pths = append(pths, info.Path)
		}
	}
	return
}

func exportOutput(key, value, description string) {
	if err := tools.ExportEnvironmentWithEnvman(key, value); err != nil {
		log.Warnf("Failed to export %s (%s), error: %s", description, value, err)
	} else {
		log.Donef("The %s is now available in the Environment Variable: %s (value: %s)", description, key, value)
	}
}

func exportInfos(infos []apkInfo) {
	packageNames := make([]string, 0, len(infos))
	debuggables := make([]string, 0, len(infos))
	for _, info := range infos {
		packageNames = append(packageNames, info.PackageName)
		debuggables = append(debuggables, strconv.FormatBool(info.Debuggable))
	}

	last := infos[len(infos)-1]
	exportOutput("BITRISE_APK_PACKAGE_NAME", last.PackageName, "package name")
	exportOutput("BITRISE_APK_DEBUGGABLE", strconv.FormatBool(last.Debuggable), "debuggable flag")
	exportOutput("BITRISE_APK_PACKAGE_NAME_LIST", strings.Join(packageNames, "|"), "package name list")
	exportOutput("BITRISE_APK_DEBUGGABLE_LIST", strings.Join(debuggables, "|"), "debuggable flag list")
}

// -----------------------
// --- Main
// -----------------------
func main() {
	var cfg configs
	if err := stepconf.Parse(&cfg); err != nil {
		failf("Process config: failed to parse input: %s", err)
	}

	stepconf.Print(cfg)
	log.SetEnableDebugLog(cfg.VerboseLog)
	fmt.Println()

	if err := validate(cfg); err != nil {
		failf("Process config: failed to validate input: %s", err)
	}

	apkPaths := parseAppList(cfg.BuildArtifactPath)
	concurrency := inspectConcurrency(cfg)

	log.Infof("Inspecting %d APKs", len(apkPaths))
	log.Debugf("concurrency: %d", concurrency)

	inspector := manifestInspector{dumpManifest: cfg.VerboseLog}
	infos, err := inspectApps(context.Background(), apkPaths, concurrency, inspector.inspect)
	if err != nil {
		failf("Run: failed to inspect APK: %s", err)
	}

	for i, info := range infos {
		log.Donef("%d/%d %s", i+1, len(infos), info.Path)
		log.Printf("- package name: %s", info.PackageName)
		log.Printf("- debuggable: %t", info.Debuggable)
	}
	fmt.Println()

	if cfg.VerifyWithAAPT {
		log.Infof("Verify with aapt")
		if err := verifyWithAAPT(infos); err != nil {
			failf("Run: aapt verification failed: %s", err)
		}
		fmt.Println()
	}

	log.Infof("Export outputs")
	exportInfos(infos)

	if debuggable := debuggableApps(infos); cfg.FailOnDebuggable && len(debuggable) > 0 {
		fmt.Println()
		failf("Debuggable APK found: %s", strings.Join(debuggable, ", "))
	}
}
