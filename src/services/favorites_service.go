package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/username/tokentracker/src/logger"
)

const favoritesKey = "favorites"

// FavoritesService manages the ordered list of coin ids a user starred.
// Each user's list is loaded once and kept in memory; every change is
// written back as a JSON array.
type FavoritesService struct {
	store PreferenceStore

	mu     sync.Mutex
	loaded map[int64][]string
}

func NewFavoritesService(store PreferenceStore) *FavoritesService {
	return &FavoritesService{
		store:  store,
		loaded: make(map[int64][]string),
	}
}

// list returns the user's favorites, loading them on first use. A failed
// read is returned and not cached, so the next call retries the store.
// Must be called with s.mu held.
func (s *FavoritesService) list(ctx context.Context, userID int64) ([]string, error) {
	if favs, ok := s.loaded[userID]; ok {
		return favs, nil
	}
	raw, found, err := s.store.Get(ctx, userID, favoritesKey)
	if err != nil {
		logger.FromContext(ctx).Error("Error loading favorites", "userID", userID, "error", err)
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}
	favs := []string{}
	if found {
		var stored []string
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			logger.FromContext(ctx).Error("Stored favorites are not a JSON array", "userID", userID, "error", err)
		}
		for _, id := range stored {
			if id != "" && !slices.Contains(favs, id) {
				favs = append(favs, id)
			}
		}
	}
	s.loaded[userID] = favs
	return favs, nil
}

func (s *FavoritesService) save(ctx context.Context, userID int64, favs []string) error {
	data, err := json.Marshal(favs)
	if err != nil {
		return fmt.Errorf("failed to encode favorites: %w", err)
	}
	if err := s.store.Set(ctx, userID, favoritesKey, string(data)); err != nil {
		return fmt.Errorf("failed to save favorites: %w", err)
	}
	s.loaded[userID] = favs
	return nil
}

// List returns the user's favorites. A load failure yields an empty list.
func (s *FavoritesService) List(ctx context.Context, userID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	favs, err := s.list(ctx, userID)
	if err != nil {
		return []string{}
	}
	return slices.Clone(favs)
}

func (s *FavoritesService) IsFavorite(ctx context.Context, userID int64, coinID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	favs, err := s.list(ctx, userID)
	return err == nil && slices.Contains(favs, coinID)
}

// Add appends coinID. Adding an existing favorite does nothing.
func (s *FavoritesService) Add(ctx context.Context, userID int64, coinID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(ctx, userID, coinID)
}

func (s *FavoritesService) Remove(ctx context.Context, userID int64, coinID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(ctx, userID, coinID)
}

// Toggle adds or removes coinID and reports whether it is now a favorite.
func (s *FavoritesService) Toggle(ctx context.Context, userID int64, coinID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	favs, err := s.list(ctx, userID)
	if err != nil {
		return false, err
	}
	if slices.Contains(favs, coinID) {
		_, err := s.remove(ctx, userID, coinID)
		return err != nil, err
	}
	_, err = s.add(ctx, userID, coinID)
	return err == nil, err
}

func (s *FavoritesService) add(ctx context.Context, userID int64, coinID string) ([]string, error) {
	favs, err := s.list(ctx, userID)
	if err != nil {
		return []string{}, err
	}
	if slices.Contains(favs, coinID) {
		return slices.Clone(favs), nil
	}
	next := append(slices.Clone(favs), coinID)
	if err := s.save(ctx, userID, next); err != nil {
		return slices.Clone(favs), err
	}
	return slices.Clone(next), nil
}

func (s *FavoritesService) remove(ctx context.Context, userID int64, coinID string) ([]string, error) {
	favs, err := s.list(ctx, userID)
	if err != nil {
		return []string{}, err
	}
	next := slices.DeleteFunc(slices.Clone(favs), func(id string) bool { return id == coinID })
	if len(next) == len(favs) {
		return slices.Clone(favs), nil
	}
	if err := s.save(ctx, userID, next); err != nil {
		return slices.Clone(favs), err
	}
	return slices.Clone(next), nil
}
