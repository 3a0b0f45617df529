package options

import (
	"net/url"
	"strconv"
)

type OptionStruct struct {
	Key   string
	Value string
}

type Option func(*OptionStruct)

func Page(value int) Option {
	return func(f *OptionStruct) {
		f.Key = "page"
		f.Value = strconv.Itoa(value)
	}
}

func PerPage(value int) Option {
	return func(f *OptionStruct) {
		f.Key = "per_page"
		f.Value = strconv.Itoa(value)
	}
}

func Force(value bool) Option {
	return func(f *OptionStruct) {
		f.Key = "force"
		if value {
			f.Value = "true"
		} else {
			f.Value = "false"
		}
	}
}

func Search(value string) Option {
	return func(f *OptionStruct) {
		f.Key = "search"
		f.Value = value
	}
}

func Status(value string) Option {
	return func(f *OptionStruct) {
		f.Key = "status"
		f.Value = value
	}
}

func Sku(value string) Option {
	return func(f *OptionStruct) {
		f.Key = "sku"
		f.Value = value
	}
}

func Code(value string) Option {
	return func(f *OptionStruct) {
		f.Key = "code"
		f.Value = value
	}
}

// After limits orders to those created after an ISO8601 timestamp.
func After(value string) Option {
	return func(f *OptionStruct) {
		f.Key = "after"
		f.Value = value
	}
}

func OrderBy(value string) Option {
	return func(f *OptionStruct) {
		f.Key = "orderby"
		f.Value = value
	}
}

func Order(value string) Option {
	return func(f *OptionStruct) {
		f.Key = "order"
		f.Value = value
	}
}

// Values applies opts to a query.
func Values(opts ...Option) url.Values {
	params := url.Values{}
	Option := new(OptionStruct)
	for _, field := range opts {
		field(Option)
		params.Set(Option.Key, Option.Value)
	}
	return params
}
