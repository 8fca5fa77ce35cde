package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/charmbracelet/huh"
	"github.com/tobyns/focusgate/pkg/cli"
	"gopkg.in/yaml.v3"
)

// didYouMeanDistance is the maximum edit distance for remove suggestions.
const didYouMeanDistance = 3

// blocklistFile is the YAML shape used by export and import.
type blocklistFile struct {
	Sites []blocklistEntry `yaml:"sites"`
}

type blocklistEntry struct {
	Domain   string `yaml:"domain"`
	Category string `yaml:"category,omitempty"`
}

// cmdAdd adds a site to the blocklist. With no argument it prompts for the
// domain and category.
func cmdAdd(style *termStyle, args []string) {
	var domain, category string
	if len(args) > 0 {
		domain = args[0]
		if len(args) > 1 {
			category = args[1]
		}
	} else {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Domain").
					Description("Site to block, e.g. reddit.com or *.youtube.com").
					Placeholder("reddit.com").
					Value(&domain).
					Validate(validateDomain),
				huh.NewSelect[string]().
					Title("Category").
					Options(
						huh.NewOption("(none)", ""),
						huh.NewOption("Social", "social"),
						huh.NewOption("Video", "video"),
						huh.NewOption("News", "news"),
						huh.NewOption("Games", "games"),
						huh.NewOption("Shopping", "shopping"),
					).
					Value(&category),
			),
		)
		if err := form.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	c := daemonClient()
	payload := map[string]string{"domain": domain}
	if category != "" {
		payload["category"] = category
	}

	var site struct {
		Domain string `json:"domain"`
	}
	if err := c.CommandInto(nil, "addSite", payload, &site); err != nil {
		style.Error(err.Error())
		os.Exit(1)
	}
	style.Success(fmt.Sprintf("Blocking %s", site.Domain))
}

// cmdRemove removes a site, suggesting close matches on a miss.
func cmdRemove(style *termStyle, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: focusgate remove <domain>")
		os.Exit(1)
	}
	domain := strings.ToLower(strings.TrimSpace(args[0]))

	c := daemonClient()
	var removed struct {
		Domain string `json:"domain"`
	}
	err := c.CommandInto(nil, "removeSite", map[string]string{"domain": domain}, &removed)
	if err == nil {
		style.Success(fmt.Sprintf("Unblocked %s", removed.Domain))
		return
	}

	style.Error(err.Error())
	if suggestion := closestSite(c, domain); suggestion != "" {
		fmt.Printf("Did you mean %s?\n", style.Cyan(suggestion))
	}
	os.Exit(1)
}

// closestSite returns the blocklist entry nearest to domain, or "" when
// nothing is close enough.
func closestSite(c *cli.Client, domain string) string {
	var sites []struct {
		Domain string `json:"domain"`
	}
	if err := c.CommandInto(nil, "getSites", nil, &sites); err != nil {
		return ""
	}
	candidates := make([]string, 0, len(sites))
	for _, s := range sites {
		candidates = append(candidates, s.Domain)
	}
	return suggestClosest(domain, candidates)
}

// cmdSites lists the blocklist with block counts.
func cmdSites(style *termStyle) {
	c := daemonClient()

	var sites []struct {
		Domain     string `json:"domain"`
		Category   string `json:"category"`
		BlockCount int    `json:"block_count"`
	}
	if err := c.CommandInto(nil, "getSites", nil, &sites); err != nil {
		style.Error(err.Error())
		os.Exit(1)
	}

	if len(sites) == 0 {
		fmt.Println("No blocked sites. Add one with: focusgate add <domain>")
		return
	}

	sort.Slice(sites, func(i, j int) bool { return sites[i].Domain < sites[j].Domain })
	for _, s := range sites {
		line := s.Domain
		if s.Category != "" {
			line += " " + style.Dim("("+s.Category+")")
		}
		if s.BlockCount > 0 {
			line += " " + style.Dim(fmt.Sprintf("— blocked %d times", s.BlockCount))
		}
		style.Bullet(line)
	}
}

// cmdExport writes the blocklist to a YAML file.
func cmdExport(style *termStyle, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: focusgate export <file>")
		os.Exit(1)
	}

	c := daemonClient()
	var sites []blocklistEntry
	var raw []struct {
		Domain   string `json:"domain"`
		Category string `json:"category"`
	}
	if err := c.CommandInto(nil, "getSites", nil, &raw); err != nil {
		style.Error(err.Error())
		os.Exit(1)
	}
	for _, s := range raw {
		sites = append(sites, blocklistEntry{Domain: s.Domain, Category: s.Category})
	}

	data, err := yaml.Marshal(blocklistFile{Sites: sites})
	if err != nil {
		style.Error(fmt.Sprintf("failed to encode blocklist: %v", err))
		os.Exit(1)
	}
	if err := os.WriteFile(args[0], data, 0644); err != nil {
		style.Error(fmt.Sprintf("failed to write %s: %v", args[0], err))
		os.Exit(1)
	}
	style.Success(fmt.Sprintf("Exported %d sites to %s", len(sites), args[0]))
}

// cmdImport adds blocklist entries from a YAML file. Entries already present
// are skipped.
func cmdImport(style *termStyle, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: focusgate import <file>")
		os.Exit(1)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		style.Error(fmt.Sprintf("failed to read %s: %v", args[0], err))
		os.Exit(1)
	}

	var file blocklistFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		style.Error(fmt.Sprintf("failed to parse %s: %v", args[0], err))
		os.Exit(1)
	}

	c := daemonClient()
	added, skipped := 0, 0
	for _, entry := range file.Sites {
		if entry.Domain == "" {
			continue
		}
		payload := map[string]string{"domain": entry.Domain}
		if entry.Category != "" {
			payload["category"] = entry.Category
		}
		if err := c.CommandInto(nil, "addSite", payload, nil); err != nil {
			skipped++
			continue
		}
		added++
	}

	style.Success(fmt.Sprintf("Imported %d sites (%d skipped)", added, skipped))
}

func validateDomain(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("domain is required")
	}
	if strings.ContainsAny(s, " \t") {
		return fmt.Errorf("domain must not contain spaces")
	}
	return nil
}

// suggestClosest returns the candidate nearest to target within the edit
// distance cutoff, or "".
func suggestClosest(target string, candidates []string) string {
	best := ""
	bestDist := didYouMeanDistance + 1
	for _, cand := range candidates {
		if d := levenshtein.ComputeDistance(target, cand); d < bestDist {
			best = cand
			bestDist = d
		}
	}
	return best
}
