package shell

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/gonewx/kikka/internal/descript"
)

// applyDescript copies every recognized descript.txt key into the shell.
// A malformed integer aborts with an error; unknown keys are logged.
func (s *Shell) applyDescript(d *descript.Descript) error {
	for _, e := range d.Entries() {
		key := descript.SplitKey(e.Key)
		value := descript.SplitValue(e.Value)

		var err error
		switch {
		case key[0] == "menu":
			err = s.applyMenu(e.Key, key, value)
		case key[0] == "sakura" || key[0] == "kero" || strings.HasPrefix(key[0], "char"):
			err = s.applySoul(e.Key, key, value)
		case key[0] == "id":
			s.ID = value[0]
		case key[0] == "name":
			s.Name = value[0]
		case key[0] == "catalog":
			s.Catalog = value[0]
		case key[0] == "description":
			s.Description = value[0]
		case key[0] == "type":
			s.Type = value[0]
		case key[0] == "craftman" || key[0] == "craftmanw":
			s.Author.Name = value[0]
		case key[0] == "craftmanurl" || key[0] == "crafmanurl":
			s.Author.Website = value[0]
		case key[0] == "homeurl":
			s.Author.UpdateURL = value[0]
		case key[0] == "readme":
			s.Author.Readme = value[0]
		case key[0] == "charset" || key[0] == "shiori" || key[0] == "mode" || key[0] == "seriko":
			// SSP compatibility keys without meaning here
		default:
			s.ignoreKey(e.Key, e.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Shell) ignoreKey(key, value string) {
	log.Printf("[Shell] unknown descript key: %s,%s", key, value)
	s.UnknownKeys = append(s.UnknownKeys, key+","+value)
}

// at returns key[i] or "" when the key is too short.
func at(key []string, i int) string {
	return descript.Field(key, i)
}

func (s *Shell) applyMenu(raw string, key, value []string) error {
	m := &s.Menu
	if len(key) == 1 {
		m.Hidden = strings.EqualFold(strings.TrimSpace(value[0]), "hidden")
		return nil
	}

	switch at(key, 1) {
	case "font":
		switch at(key, 2) {
		case "name":
			m.FontFamily = value[0]
		case "height":
			n, err := descript.Atoi(raw, value[0])
			if err != nil {
				return err
			}
			m.FontSize = n
		default:
			s.ignoreKey(raw, strings.Join(value, ","))
		}
	case "background", "foreground":
		img, color, align := &m.BackgroundImage, &m.BackgroundFontColor, &m.BackgroundAlignment
		if key[1] == "foreground" {
			img, color, align = &m.ForegroundImage, &m.ForegroundFontColor, &m.ForegroundAlignment
		}
		switch {
		case at(key, 2) == "font" && at(key, 3) == "color":
			return s.setChannel(color, raw, at(key, 4), value[0])
		case at(key, 2) == "bitmap" && at(key, 3) == "filename":
			*img = value[0]
		case at(key, 2) == "alignment":
			*align = value[0]
		default:
			s.ignoreKey(raw, strings.Join(value, ","))
		}
	case "disable":
		if at(key, 2) == "font" && at(key, 3) == "color" {
			return s.setChannel(&m.DisableFontColor, raw, at(key, 4), value[0])
		}
		s.ignoreKey(raw, strings.Join(value, ","))
	case "separator":
		if at(key, 2) == "color" {
			return s.setChannel(&m.SeparatorColor, raw, at(key, 3), value[0])
		}
		s.ignoreKey(raw, strings.Join(value, ","))
	case "sidebar":
		switch {
		case at(key, 2) == "bitmap" && at(key, 3) == "filename":
			m.SidebarImage = value[0]
		case at(key, 2) == "alignment":
			m.SidebarAlignment = value[0]
		default:
			s.ignoreKey(raw, strings.Join(value, ","))
		}
	default:
		s.ignoreKey(raw, strings.Join(value, ","))
	}
	return nil
}

func (s *Shell) setChannel(c *Color, raw, channel, value string) error {
	idx := strings.Index("rgb", channel)
	if channel == "" || idx < 0 || len(channel) != 1 {
		s.ignoreKey(raw, value)
		return nil
	}
	n, err := descript.Atoi(raw, value)
	if err != nil {
		return err
	}
	c[idx] = n
	return nil
}

// soulIndex maps "sakura", "kero" and "charN" to a soul index.
func soulIndex(raw, name string) (int, error) {
	switch name {
	case "sakura":
		return 0, nil
	case "kero":
		return 1, nil
	}
	return descript.Atoi(raw, strings.TrimPrefix(name, "char"))
}

func (s *Shell) applySoul(raw string, key, value []string) error {
	sid, err := soulIndex(raw, key[0])
	if err != nil {
		return err
	}
	st := s.Setting(sid)
	sub := at(key, 1)

	switch {
	case strings.HasPrefix(sub, "bindgroup"):
		aid, err := descript.Atoi(raw, strings.TrimPrefix(sub, "bindgroup"))
		if err != nil {
			return err
		}
		switch at(key, 2) {
		case "name":
			g := st.group(aid)
			g.Type = value[0]
			g.Title = descript.Field(value, 1)
			g.Image = descript.Field(value, 2)
		case "default":
			st.group(aid).Default = value[0] != "0"
		default:
			s.ignoreKey(raw, strings.Join(value, ","))
		}

	case strings.HasPrefix(sub, "menuitem"):
		mid, err := descript.Atoi(raw, strings.TrimPrefix(sub, "menuitem"))
		if err != nil {
			return err
		}
		if value[0] == "-" {
			st.ClothesMenu[mid] = -1
			return nil
		}
		aid, err := descript.Atoi(raw, value[0])
		if err != nil {
			return err
		}
		st.ClothesMenu[mid] = aid

	case sub == "balloon":
		switch at(key, 2) {
		case "offsetx":
			return setInt(&st.BalloonOffset.X, raw, value[0])
		case "offsety":
			return setInt(&st.BalloonOffset.Y, raw, value[0])
		case "alignment":
			st.BalloonAlignment = value[0]
		default:
			s.ignoreKey(raw, strings.Join(value, ","))
		}

	case strings.HasPrefix(sub, "bindoption"):
		if at(key, 2) == "group" && len(value) >= 2 {
			st.BindOptions[value[0]] = value[1]
		} else {
			s.ignoreKey(raw, strings.Join(value, ","))
		}

	case sub == "defaultx":
		return setInt(&st.Offset.X, raw, value[0])
	case sub == "defaulty":
		return setInt(&st.Offset.Y, raw, value[0])
	case sub == "defaultleft":
		return setIntPtr(&st.PositionX, raw, value[0])
	case sub == "defaulttop":
		return setIntPtr(&st.PositionY, raw, value[0])
	case sub == "name":
		st.Name = value[0]

	default:
		s.ignoreKey(raw, strings.Join(value, ","))
	}
	return nil
}

func setInt(dst *int, raw, value string) error {
	n, err := descript.Atoi(raw, value)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setIntPtr(dst **int, raw, value string) error {
	n, err := descript.Atoi(raw, value)
	if err != nil {
		return err
	}
	*dst = &n
	return nil
}

// applySurfacesDescript handles the "descript" section of surfaces.txt.
func (s *Shell) applySurfacesDescript(d *descript.Descript) error {
	for _, e := range d.Entries() {
		value := strings.TrimSpace(descript.Field(descript.SplitValue(e.Value), 0))
		switch e.Key {
		case "version":
			if err := setInt(&s.Version, "surfaces.descript.version", value); err != nil {
				return err
			}
		case "maxwidth":
			if err := setInt(&s.MaxWidth, "surfaces.descript.maxwidth", value); err != nil {
				return err
			}
		case "collision-sort":
			if p, ok := parseSort(value); ok {
				s.CollisionSort = p
			}
		case "animation-sort":
			if p, ok := parseSort(value); ok {
				s.AnimationSort = p
			}
		default:
			s.ignoreKey("surfaces.descript."+e.Key, e.Value)
		}
	}
	return nil
}

// parseSurfaceTable reads "id,display name" lines.
func (s *Shell) parseSurfaceTable(data []byte) {
	for _, raw := range descript.SplitLines(descript.Decode(data)) {
		line := descript.CleanLine(raw)
		if descript.IsComment(line) {
			continue
		}
		idText, name, ok := strings.Cut(line, ",")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(idText))
		if err != nil {
			continue
		}
		if sf, ok := s.byID[id]; ok {
			sf.DisplayName = strings.TrimSpace(name)
		}
	}
}

func errorf(name, format string, args ...any) error {
	return fmt.Errorf("shell %s: "+format, append([]any{name}, args...)...)
}
