package store

import sq "github.com/Masterminds/squirrel"

const schema = "campaid"

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func table(name string) string {
	return schema + "." + name
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
