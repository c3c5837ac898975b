package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/reardonm/trivia/models"
)

// DataLoader bulk-loads category-tagged questions into the pool at startup.
// Loading is skipped entirely when the pool already has data.
type DataLoader struct {
	store    QuestionStore
	dataPath string
	log      *logrus.Entry
}

func NewDataLoader(store QuestionStore, dataPath string) *DataLoader {
	return &DataLoader{
		store:    store,
		dataPath: dataPath,
		log:      logrus.WithField("component", "data_loader"),
	}
}

// Load populates the question pool from the configured path, which may be a
// single JSON file or a directory of them. Per-file parse errors are logged
// and do not abort the rest of the load.
func (l *DataLoader) Load(ctx context.Context) error {
	categories, err := l.store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("check existing questions: %w", err)
	}
	if len(categories) > 0 {
		l.log.Info("existing question data found, nothing to load")
		return nil
	}

	files, err := l.dataFiles()
	if err != nil {
		return err
	}
	l.log.WithField("path", l.dataPath).Info("loading questions")

	loaded := 0
	for _, file := range files {
		questions, err := parseQuestions(file)
		if err != nil {
			l.log.WithError(err).WithField("file", file).Error("skipping question file")
			continue
		}
		for _, q := range questions {
			if err := l.store.SaveQuestion(ctx, q); err != nil {
				return fmt.Errorf("save question: %w", err)
			}
			loaded++
		}
	}
	l.log.WithField("count", loaded).Info("questions loaded")
	return nil
}

func (l *DataLoader) dataFiles() ([]string, error) {
	info, err := os.Stat(l.dataPath)
	if err != nil {
		return nil, fmt.Errorf("cannot load question data: %w", err)
	}
	if !info.IsDir() {
		return []string{l.dataPath}, nil
	}
	entries, err := os.ReadDir(l.dataPath)
	if err != nil {
		return nil, fmt.Errorf("cannot load question data: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(l.dataPath, entry.Name()))
	}
	return files, nil
}

func parseQuestions(file string) ([]models.Question, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var questions []models.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}
