package main

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io/ioutil"

	"github.com/avast/apkparser"
	"github.com/bitrise-io/go-utils/log"
	"github.com/bitrise-steplib/steps-apk-manifest-info/binxml"
)

const androidManifestName = "AndroidManifest.xml"

type apkInfo struct {
	Path        string
	PackageName string
	Debuggable  bool
}

type manifestInspector struct {
	dumpManifest bool
}

func readAPKManifest(apkPath string) ([]byte, error) {
	apk, err := apkparser.OpenZip(apkPath)
	if err != nil {
		return nil, fmt.Errorf("failed to unzip the APK: %s", err)
	}
	defer func() {
		if err := apk.Close(); err != nil {
			log.Warnf("Failed to close APK: %s, error: %s", apkPath, err)
		}
	}()

	zipFile := apk.File[androidManifestName]
	if zipFile == nil {
		return nil, fmt.Errorf("%s not found in the APK", androidManifestName)
	}
	if err := zipFile.Open(); err != nil {
		return nil, fmt.Errorf("failed to open %s: %s", androidManifestName, err)
	}
	defer func() {
		if err := zipFile.Close(); err != nil {
			log.Warnf("Failed to close %s, error: %s", androidManifestName, err)
		}
	}()

	// a zip can hold more than one entry with the same name, the first readable one wins
	lastErr := errors.New("no entry")
	for zipFile.Next() {
		data, err := ioutil.ReadAll(zipFile)
		if err != nil {
			lastErr = err
			continue
		}
		return data, nil
	}

	return nil, fmt.Errorf("failed to read %s: %s", androidManifestName, lastErr)
}

func dumpManifestXML(data []byte) (string, error) {
	var manifestContent bytes.Buffer
	enc := xml.NewEncoder(&manifestContent)
	enc.Indent("", "\t")

	if err := apkparser.ParseXml(bytes.NewReader(data), enc, nil); err != nil {
		return "", err
	}
	return manifestContent.String(), nil
}

func parseManifestInfo(data []byte) (apkInfo, error) {
	packageName, err := binxml.PackageName(data)
	if err != nil {
		return apkInfo{}, fmt.Errorf("failed to read package name: %w", err)
	}

	debuggable, err := binxml.Debuggable(data)
	if errors.Is(err, binxml.ErrElementNotFound) {
		log.Warnf("No <application> element in %s, treating it as not debuggable", androidManifestName)
	} else if err != nil {
		return apkInfo{}, fmt.Errorf("failed to read debuggable flag: %w", err)
	}

	return apkInfo{PackageName: packageName, Debuggable: debuggable}, nil
}

func (i manifestInspector) inspect(apkPath string) (apkInfo, error) {
	data, err := readAPKManifest(apkPath)
	if err != nil {
		return apkInfo{}, err
	}
	log.Debugf("%s: %s is %d bytes", apkPath, androidManifestName, len(data))

	if i.dumpManifest {
		if manifest, err := dumpManifestXML(data); err != nil {
			log.Warnf("Failed to render %s of %s: %s", androidManifestName, apkPath, err)
		} else {
			log.Debugf("%s of %s:\n%s", androidManifestName, apkPath, manifest)
		}
	}

	info, err := parseManifestInfo(data)
	if err != nil {
		return apkInfo{}, fmt.Errorf("failed to parse %s: %w", androidManifestName, err)
	}
	info.Path = apkPath

	return info, nil
}
