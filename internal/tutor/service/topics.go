package service

import (
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TopicSampleSize is how many topics one suggestion contains.
const TopicSampleSize = 5

// DefaultTopics are offered when no topics file is configured.
var DefaultTopics = []string{
	"Technology", "Future", "Science", "History", "Fantasy", "Mystery",
	"Adventure", "Discovery", "Innovation", "Nature", "Space", "AI",
	"Biography", "Business", "Psychology", "Art", "Music", "Travel",
}

type topicsFile struct {
	Topics []string `yaml:"topics"`
}

// LoadTopics reads a YAML file of the form `topics: [..]`.
// Blank and repeated entries are dropped; at least TopicSampleSize must remain.
func LoadTopics(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topics file: %w", err)
	}

	var f topicsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse topics file %s: %w", path, err)
	}

	topics := dedupe(f.Topics)
	if len(topics) < TopicSampleSize {
		return nil, fmt.Errorf("topics file %s has %d distinct topics, need at least %d", path, len(topics), TopicSampleSize)
	}
	return topics, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// sampleTopics picks n distinct topics uniformly at random.
func sampleTopics(topics []string, n int) []string {
	if n > len(topics) {
		n = len(topics)
	}
	out := make([]string, 0, n)
	for _, i := range rand.Perm(len(topics))[:n] {
		out = append(out, topics[i])
	}
	return out
}
