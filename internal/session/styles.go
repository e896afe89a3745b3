package session

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/Benny93/vizsync/internal/lexicon"
	"github.com/Benny93/vizsync/internal/model"
	"github.com/Benny93/vizsync/internal/storage"
	"github.com/Benny93/vizsync/internal/vizmap"
)

// ErrNoBackend is returned by persistence operations of a session without
// a backend.
var ErrNoBackend = errors.New("session has no storage backend")

// EnsureStyle returns the registered style with the given title, creating
// and registering an empty one when none exists.
func (s *Session) EnsureStyle(title string) *vizmap.VisualStyle {
	if style := s.styles.StyleByTitle(title); style != nil {
		return style
	}
	style := vizmap.NewVisualStyle(title)
	// AddVisualStyle only fails on nil.
	_ = s.styles.AddVisualStyle(style)
	s.log.WithField("style", title).Debug("visual style created")
	return style
}

// Associate binds columnStyle to a column of the node or edge table under
// networkStyle. An empty columnStyle removes the association.
func (s *Session) Associate(networkStyle, tableType, column, columnStyle string) error {
	typ, err := model.ParseTableType(tableType)
	if err != nil {
		return err
	}
	var cs *vizmap.VisualStyle
	if columnStyle != "" {
		cs = s.EnsureStyle(columnStyle)
	}
	return s.columnStyles.SetAssociatedVisualStyle(s.EnsureStyle(networkStyle), typ, column, cs)
}

// SaveStyles writes every registered style and association to the backend.
// Stored associations that no longer exist are deleted.
func (s *Session) SaveStyles(ctx context.Context) error {
	if s.backend == nil {
		return ErrNoBackend
	}

	for _, style := range s.styles.AllVisualStyles() {
		if err := s.backend.SaveStyle(ctx, EncodeStyle(style)); err != nil {
			return fmt.Errorf("saving style %s: %w", style.Title(), err)
		}
	}

	keep := make(map[string]bool)
	for _, a := range s.columnStyles.AllStyleAssociations() {
		rec := EncodeAssociation(a)
		keep[rec.Key()] = true
		if err := s.backend.SaveAssociation(ctx, rec); err != nil {
			return fmt.Errorf("saving association: %w", err)
		}
	}

	stored, err := s.backend.Associations(ctx)
	if err != nil {
		return fmt.Errorf("listing associations: %w", err)
	}
	for _, rec := range stored {
		if keep[rec.Key()] {
			continue
		}
		if err := s.backend.DeleteAssociation(ctx, rec.Key()); err != nil {
			return fmt.Errorf("deleting association: %w", err)
		}
	}
	return nil
}

// RestoreAssociations loads the stored styles and associations into the
// session. Stored styles replace the contents of registered styles with the
// same title. Associations naming unknown styles are skipped.
func (s *Session) RestoreAssociations(ctx context.Context) (int, error) {
	if s.backend == nil {
		return 0, ErrNoBackend
	}

	styles, err := s.backend.Styles(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading styles: %w", err)
	}
	for _, rec := range styles {
		s.restoreStyle(rec)
	}

	assocs, err := s.backend.Associations(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading associations: %w", err)
	}
	restored := 0
	for _, rec := range assocs {
		ns, cs := s.styles.StyleByTitle(rec.NetworkStyle), s.styles.StyleByTitle(rec.ColumnStyle)
		typ, err := model.ParseTableType(rec.TableType)
		if ns == nil || cs == nil || err != nil {
			s.log.WithFields(logrus.Fields{
				"networkStyle": rec.NetworkStyle,
				"columnStyle":  rec.ColumnStyle,
				"table":        rec.TableType,
			}).Warn("skipping stored association")
			continue
		}
		if err := s.columnStyles.SetAssociatedVisualStyle(ns, typ, rec.ColumnName, cs); err != nil {
			s.log.WithError(err).WithField("column", rec.ColumnName).Warn("skipping stored association")
			continue
		}
		restored++
	}
	return restored, nil
}

func (s *Session) restoreStyle(rec storage.StyleRecord) {
	style := s.EnsureStyle(rec.Title)
	for _, m := range style.Mappings() {
		style.RemoveMapping(m.Property())
	}
	for vp := range style.Defaults() {
		style.SetDefaultValue(vp, nil)
	}

	for id, v := range rec.Defaults {
		vp, ok := s.lex.Lookup(id)
		if !ok || !vp.Accepts(v) {
			s.log.WithFields(logrus.Fields{"style": rec.Title, "property": id}).Warn("skipping stored default")
			continue
		}
		style.SetDefaultValue(vp, v)
	}
	for _, mr := range rec.Mappings {
		m, err := mappingFromRecord(s.lex, mr)
		if err != nil {
			s.log.WithError(err).WithField("style", rec.Title).Warn("skipping stored mapping")
			continue
		}
		style.AddMapping(m)
	}
}

// EncodeStyle converts a style to its stored form.
func EncodeStyle(style *vizmap.VisualStyle) storage.StyleRecord {
	rec := storage.StyleRecord{Title: style.Title()}
	if defaults := style.Defaults(); len(defaults) > 0 {
		rec.Defaults = make(map[string]any, len(defaults))
		for vp, v := range defaults {
			rec.Defaults[vp.ID] = v
		}
	}
	for _, m := range style.Mappings() {
		mr := storage.MappingRecord{Column: m.Column(), Property: m.Property().ID}
		switch m := m.(type) {
		case *vizmap.PassthroughMapping:
			mr.Kind = storage.MappingPassthrough
		case *vizmap.DiscreteMapping:
			mr.Kind = storage.MappingDiscrete
			for k, v := range m.Entries() {
				mr.Entries = append(mr.Entries, storage.EntryRecord{Key: k, Value: v})
			}
			slices.SortFunc(mr.Entries, func(a, b storage.EntryRecord) int {
				return cmp.Compare(fmt.Sprint(a.Key), fmt.Sprint(b.Key))
			})
		default:
			continue
		}
		rec.Mappings = append(rec.Mappings, mr)
	}
	return rec
}

// EncodeAssociation converts an association to its stored form.
func EncodeAssociation(a vizmap.StyleAssociation) storage.AssociationRecord {
	return storage.AssociationRecord{
		NetworkStyle: a.NetworkStyle.Title(),
		TableType:    a.TableType.String(),
		ColumnName:   a.ColumnName,
		ColumnStyle:  a.ColumnStyle.Title(),
	}
}

func mappingFromRecord(lex lexicon.Lexicon, mr storage.MappingRecord) (vizmap.Mapping, error) {
	vp, ok := lex.Lookup(mr.Property)
	if !ok {
		return nil, fmt.Errorf("unknown visual property %q", mr.Property)
	}
	switch mr.Kind {
	case storage.MappingPassthrough:
		return vizmap.NewPassthroughMapping(mr.Column, vp), nil
	case storage.MappingDiscrete:
		m := vizmap.NewDiscreteMapping(mr.Column, vp)
		for _, e := range mr.Entries {
			m.Put(e.Key, e.Value)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown mapping kind %q", mr.Kind)
	}
}

// Associations returns every association in stored form, ordered by key.
func (s *Session) Associations() []storage.AssociationRecord {
	assocs := s.columnStyles.AllStyleAssociations()
	out := make([]storage.AssociationRecord, 0, len(assocs))
	for _, a := range assocs {
		out = append(out, EncodeAssociation(a))
	}
	slices.SortFunc(out, func(a, b storage.AssociationRecord) int { return cmp.Compare(a.Key(), b.Key()) })
	return out
}
