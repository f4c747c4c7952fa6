package confloader

import (
	"reflect"
	"sort"
)

// KeysOf returns the dotted koanf keys of the leaf fields of target, which
// must be a struct or a pointer to one. Fields without a koanf tag are skipped.
func KeysOf(target any) []string {
	t := reflect.TypeOf(target)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	var keys []string
	collectKeys(t, "", &keys)
	sort.Strings(keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("koanf")
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		// time.Duration and other named scalars are leaves; only plain
		// structs from the config tree are descended into.
		if ft.Kind() == reflect.Struct && ft.PkgPath() != "time" {
			collectKeys(ft, key, keys)
			continue
		}
		*keys = append(*keys, key)
	}
}
