package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// TablesFile lets the rubric data tables (prestige lists, synonyms, metro
// groups) be versioned and shipped separately from the main config.
type TablesFile struct {
	Scoring struct {
		Tables Tables `yaml:"tables"`
	} `yaml:"scoring"`
}

// OverlayTables replaces table sections present in tablesPath. A missing
// file is not an error; product data is optional per deployment.
func OverlayTables(cfg *Config, tablesPath string) error {
	b, err := os.ReadFile(tablesPath)
	if err != nil {
		return nil
	}

	var tf TablesFile
	if err := yaml.Unmarshal(b, &tf); err != nil {
		return err
	}

	t := tf.Scoring.Tables
	if len(t.EliteInstitutions) > 0 {
		cfg.Scoring.Tables.EliteInstitutions = t.EliteInstitutions
	}
	if len(t.StrongInstitutions) > 0 {
		cfg.Scoring.Tables.StrongInstitutions = t.StrongInstitutions
	}
	if len(t.CompanyTiers) > 0 {
		cfg.Scoring.Tables.CompanyTiers = t.CompanyTiers
	}
	if len(t.SkillSynonyms) > 0 {
		cfg.Scoring.Tables.SkillSynonyms = t.SkillSynonyms
	}
	if len(t.MetroGroups) > 0 {
		cfg.Scoring.Tables.MetroGroups = t.MetroGroups
	}
	if len(t.SeniorityLadder) > 0 {
		cfg.Scoring.Tables.SeniorityLadder = t.SeniorityLadder
	}
	return nil
}
