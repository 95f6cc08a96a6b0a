package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Discover walks splitDir (family directories containing item directories)
// and loads every item. Items missing inventory.json or questions.jsonl are
// a hard error: dataset problems must surface before any task starts.
func Discover(splitDir string) ([]Item, error) {
	families, err := os.ReadDir(splitDir)
	if err != nil {
		return nil, fmt.Errorf("dataset: read split %s: %w", splitDir, err)
	}

	var items []Item
	for _, fam := range families {
		if !fam.IsDir() {
			continue
		}
		famDir := filepath.Join(splitDir, fam.Name())
		entries, err := os.ReadDir(famDir)
		if err != nil {
			return nil, fmt.Errorf("dataset: read family %s: %w", famDir, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			itemDir := filepath.Join(famDir, e.Name())
			item, err := LoadItem(itemDir)
			if err != nil {
				return nil, err
			}
			item.Family = fam.Name()
			items = append(items, *item)
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Dir < items[j].Dir })
	return items, nil
}

// LoadItem loads one item directory.
func LoadItem(dir string) (*Item, error) {
	inv, err := loadInventory(filepath.Join(dir, "inventory.json"))
	if err != nil {
		return nil, err
	}
	qs, err := loadQuestions(filepath.Join(dir, "questions.jsonl"))
	if err != nil {
		return nil, err
	}
	return &Item{
		Dir:       dir,
		ID:        filepath.Base(dir),
		Inventory: *inv,
		Questions: qs,
	}, nil
}

func loadInventory(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: read inventory: %w", err)
	}
	var inv Inventory
	if err := json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("dataset: parse inventory %s: %w", path, err)
	}
	return &inv, nil
}

func loadQuestions(path string) ([]Question, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open questions: %w", err)
	}
	defer f.Close()

	var qs []Question
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var q Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("dataset: parse question %s:%d: %w", path, line, err)
		}
		qs = append(qs, q)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dataset: scan questions %s: %w", path, err)
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
	return qs, nil
}
