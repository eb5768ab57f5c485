// Package main provides a command-line tool for analyzing and editing
// versioned save files: header inspection, property scanning, per-player
// reports and stat/profession edits.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/fatih/color"

	"github.com/hexweld/uesavekit/internal/config"
	"github.com/hexweld/uesavekit/internal/editor"
	"github.com/hexweld/uesavekit/internal/players"
	"github.com/hexweld/uesavekit/pkg/gvas"
)

var (
	mode       string
	savePath   string
	playerFile string
	prefix     string
	steamID    string
	statName   string
	statValue  string
	profName   string
)

func init() {
	flag.StringVar(&mode, "mode", "", "Operation mode: info, scan, report, set-stat, set-profession")
	flag.StringVar(&savePath, "save", "", "Path to a .sav file")
	flag.StringVar(&playerFile, "players", "", "Path to PlayerIDMapped.txt")
	flag.StringVar(&prefix, "prefix", "", "String prefix to scan for (scan mode)")
	flag.StringVar(&steamID, "player", "", "SteamID64 of the player to edit")
	flag.StringVar(&statName, "stat", "", "Stat to set: level, skillpoints, xpgained, requiredxp, currentxp")
	flag.StringVar(&statValue, "value", "", "New stat value")
	flag.StringVar(&profName, "profession", "", "New profession, by name or enumerator number")
}

var heading = color.New(color.FgCyan, color.Bold)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := validateFlags(); err != nil {
		flag.Usage()
		return err
	}

	doc, err := gvas.Load(savePath)
	if err != nil {
		return fmt.Errorf("load save: %w", err)
	}

	switch mode {
	case "info":
		return runInfo(doc)
	case "scan":
		return runScan(doc)
	case "report":
		_, err := report(doc)
		return err
	case "set-stat":
		return runSetStat(doc)
	case "set-profession":
		return runSetProfession(doc)
	default:
		return fmt.Errorf("unknown mode: %s", mode)
	}
}

func validateFlags() error {
	if mode == "" {
		return fmt.Errorf("mode is required")
	}
	if savePath == "" {
		return fmt.Errorf("save file is required")
	}

	switch mode {
	case "info", "report":
	case "scan":
		if prefix == "" {
			return fmt.Errorf("scan mode requires -prefix")
		}
	case "set-stat":
		if steamID == "" || statName == "" || statValue == "" {
			return fmt.Errorf("set-stat mode requires -player, -stat and -value")
		}
	case "set-profession":
		if steamID == "" || profName == "" {
			return fmt.Errorf("set-profession mode requires -player and -profession")
		}
	default:
		return fmt.Errorf("mode must be 'info', 'scan', 'report', 'set-stat' or 'set-profession'")
	}
	return nil
}

func loadKnownPlayers() map[string]string {
	if playerFile == "" {
		return nil
	}
	known, err := players.Load(playerFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		return nil
	}
	return known
}

func runInfo(doc *gvas.Document) error {
	h := doc.Header
	heading.Println("Save file info")
	fmt.Printf("  File:             %s (%d bytes)\n", savePath, doc.Len())
	fmt.Printf("  Save version:     %d\n", h.SaveGameVersion)
	fmt.Printf("  Package version:  %d\n", h.PackageVersion)
	fmt.Printf("  Engine:           %s (%s, CL %d)\n", h.EngineVersion(), h.EngineBranch, h.EngineChangelist)
	fmt.Printf("  Save class:       %s\n", h.SaveGameClass)
	fmt.Printf("  Custom versions:  %d\n", len(h.CustomVersions))
	fmt.Printf("  Properties start: %d\n", h.Size)
	return nil
}

// runScan dumps every occurrence of the prefix with a little surrounding
// hex context, for hunting down editable values.
func runScan(doc *gvas.Document) error {
	data := doc.Bytes()
	occs := gvas.FindOccurrences(data, prefix)

	heading.Printf("%d occurrence(s) of %q\n", len(occs), prefix)
	for _, occ := range occs {
		marker := ""
		if !occ.PrefixValid {
			marker = color.YellowString("  [no length prefix]")
		}
		fmt.Printf("\n  offset %d: %q%s\n", occ.Offset, occ.Text, marker)

		start := max(occ.Offset-16, 0)
		end := min(occ.End()+16, len(data))
		fmt.Printf("    context: % X\n", data[start:end])
	}
	return nil
}

func report(doc *gvas.Document) (*editor.Editor, error) {
	ed, err := editor.New(doc, loadKnownPlayers())
	if err != nil {
		return nil, err
	}

	list := ed.Players()
	heading.Printf("%d player(s)\n", len(list))
	for i, p := range list {
		fmt.Printf("\n  [%d] %s (SteamID: %s)\n", i+1, color.GreenString(p.Name), p.SteamID)

		if p.Profession != nil {
			fmt.Printf("      %-26s: %s (NE%d)\n", "Profession", p.Profession.Display(), p.Profession.Num)
		} else {
			fmt.Printf("      %-26s: not found\n", "Profession")
		}
		for _, key := range editor.StatKeys() {
			if stat, ok := p.Stats[key]; ok {
				fmt.Printf("      %-26s: %s\n", editor.StatLabel(key), stat.Display())
			} else {
				fmt.Printf("      %-26s: not found\n", editor.StatLabel(key))
			}
		}
		if len(p.Unlocked) > 0 {
			fmt.Printf("      %-26s: %v\n", "Unlocked professions", unlockedNames(p.Unlocked))
		}
	}
	return ed, nil
}

func unlockedNames(values []string) []string {
	names := make([]string, len(values))
	for i, v := range values {
		if num, err := config.ParseEnumValue(v); err == nil {
			names[i] = config.ProfessionName(num)
		} else {
			names[i] = v
		}
	}
	return names
}

func findPlayer(ed *editor.Editor) (*editor.Player, error) {
	for _, p := range ed.Players() {
		if p.SteamID == steamID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no player with SteamID %s in this save", steamID)
}

func runSetStat(doc *gvas.Document) error {
	ed, err := report(doc)
	if err != nil {
		return err
	}
	p, err := findPlayer(ed)
	if err != nil {
		return err
	}

	value, err := strconv.ParseFloat(statValue, 64)
	if err != nil {
		return fmt.Errorf("bad stat value %q: %w", statValue, err)
	}

	key := editor.StatKey(statName)
	if err := ed.SetStat(p, key, value); err != nil {
		return err
	}
	if err := ed.Document().Save(savePath); err != nil {
		return err
	}

	color.Green("Set %s = %s for %s", editor.StatLabel(key), statValue, p.Name)
	fmt.Printf("Saved %s (backup written alongside)\n", savePath)
	return nil
}

func runSetProfession(doc *gvas.Document) error {
	ed, err := report(doc)
	if err != nil {
		return err
	}
	p, err := findPlayer(ed)
	if err != nil {
		return err
	}

	num, err := resolveProfession(profName)
	if err != nil {
		return err
	}

	old := "none"
	if p.Profession != nil {
		old = p.Profession.Display()
	}
	if err := ed.SetProfession(p, num); err != nil {
		return err
	}
	if err := ed.Document().Save(savePath); err != nil {
		return err
	}

	color.Green("Profession: %s -> %s for %s", old, config.ProfessionName(num), p.Name)
	fmt.Printf("Saved %s (backup written alongside)\n", savePath)
	return nil
}

func resolveProfession(s string) (int, error) {
	if num, err := strconv.Atoi(s); err == nil {
		if _, ok := config.Professions[num]; !ok {
			return 0, fmt.Errorf("no profession with enumerator %d (valid: %v)", num, professionNumbers())
		}
		return num, nil
	}
	if num, ok := config.ProfessionByName(s); ok {
		return num, nil
	}
	return 0, fmt.Errorf("unknown profession %q", s)
}

func professionNumbers() []int {
	nums := make([]int, 0, len(config.Professions))
	for num := range config.Professions {
		nums = append(nums, num)
	}
	sort.Ints(nums)
	return nums
}
