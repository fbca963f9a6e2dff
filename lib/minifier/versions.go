package minifier

import (
	"bufio"
	"bytes"
	"os/exec"
	"regexp"
	"strings"

	"github.com/hashicorp/go-set/v2"
	"github.com/pkg/errors"
)

type Version string

const (
	Unavailable Version = ""
	V1_4_0      Version = "1.4.0"
	V1_3_6      Version = "1.3.6"
	V1_3_5      Version = "1.3.5"
	V1_3_4      Version = "1.3.4"
	V1_3_3      Version = "1.3.3"
	V1_3_2      Version = "1.3.2"
	V1_3_1      Version = "1.3.1"
	V1_3        Version = "1.3"
	V1_2        Version = "1.2"
	V1_1_6      Version = "1.1.6"
)

const DefaultVersion = V1_3_6

// KnownVersions is ordered from newest to oldest.
var KnownVersions = []Version{V1_4_0, V1_3_6, V1_3_5, V1_3_4, V1_3_3, V1_3_2, V1_3_1, V1_3, V1_2, V1_1_6}

// Digests are the sha256 of the released binaries.
var Digests = map[Version]string{
	V1_1_6: "6ce3e12ab598c35a8eb9edf108928c6d43d828b475124eddeed299546318c9a1",
	V1_2:   "c91a6109bce3f0bf40573893628dd29c61b4ec498a5f08a8b32d553ae7b57a5a",
	V1_3:   "b4f3790d6f6d7ba090cc5ce412aa175362105a156fa0b68fc0be9a4fa4158af7",
	V1_3_1: "200020d7c1ffc481625d56ec0294e2d3321a92daf52fb27f80fb5c95a0617939",
	V1_3_2: "a0b25ca99e40d35ca1b8f88e5a3ef512205b82188ec8077d74734005b117abe6",
	V1_3_3: "3c12749684c394dcf3a19a274eb9ae28b0fb3d77e859ef2c3f63ed33def49fb9",
	V1_3_4: "5c7da81cb612e9367596197c6f6d3d798686542d3c312d3c12bf211a23e79bdc",
	V1_3_5: "6fe8dce492bb3b25c1f13e910d72a26ed22bce5765b0eed9922d2f1ed58a6681",
	V1_3_6: "c71e0ac9c2e73083e4d5faa232382dee1c1665b5f494fc2abebb89fa90c5aa1f",
	V1_4_0: "7a4bd1605a0e3d3cc501265a439be2888c4865c3694518f7ba41200f5808d610",
}

func ParseVersion(s string) (Version, error) {
	v := Version(strings.TrimPrefix(strings.TrimSpace(s), "v"))
	if !knownVersionSet().Contains(v) {
		return Unavailable, errors.Errorf("unknown minifier version: %v", s)
	}
	return v, nil
}

func knownVersionSet() *set.Set[Version] {
	return set.From[Version](KnownVersions)
}

var bannerRE = regexp.MustCompile(`^Shader Minifier (\S+)`)

// DetectVersion runs the binary with --help and reads the version from its banner.
func DetectVersion(path string) (Version, error) {
	out, err := exec.Command(path, "--help").Output()
	if err != nil && len(out) == 0 {
		return Unavailable, errors.Wrapf(err, "could not run %v", path)
	}

	return parseBanner(out)
}

func parseBanner(out []byte) (Version, error) {
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if !scanner.Scan() {
		return Unavailable, errors.New("empty help output")
	}

	m := bannerRE.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
	if m == nil {
		return Unavailable, errors.Errorf("unexpected help banner: %v", scanner.Text())
	}

	return ParseVersion(m[1])
}
