//
// Created on 2023/5/24 by khanghh
// Project: github.com/verichains/chain-sandbox
// Copyright (c) 2023 Verichains Lab
//

package contractmgr

import (
	"embed"
	"path"
	"sort"
	"strings"
)

//go:embed templates/*.sol
var templateFS embed.FS

// loadTemplates reads the embedded starter contracts, keyed by contract
// name (file name without extension).
func loadTemplates() (map[string]string, error) {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, err
	}
	templates := make(map[string]string, len(entries))
	for _, entry := range entries {
		content, err := templateFS.ReadFile(path.Join("templates", entry.Name()))
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		templates[name] = string(content)
	}
	return templates, nil
}

// Templates lists the names of the available starter contracts.
func (m *ContractManager) Templates() []string {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	names := make([]string, 0, len(m.templates))
	for name := range m.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Template returns the source of a starter contract by name.
func (m *ContractManager) Template(name string) (string, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	source, ok := m.templates[name]
	if !ok {
		return "", ErrTemplateNotFound
	}
	return source, nil
}
