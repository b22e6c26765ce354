package takeout

// merge folds class names of scoped sites into the untagged template
// literals that interpolate them, so `${css`...`} active` ends up as a plain
// string. Containers without a scoped site are left alone; a folded site gets
// no edit of its own because the container replacement covers it.
func (p *pass) merge() error {
	if len(p.tokens) == 0 {
		return nil
	}

	for ci, container := range p.file.Containers {
		tmpl, folded := foldTemplate(container.Template, p.tokens)
		if len(folded) == 0 {
			continue
		}
		for _, si := range folded {
			delete(p.siteOps, si)
		}

		if len(tmpl.Exprs) == 0 {
			p.containerOps = append(p.containerOps, Instruction{
				Op:        OpReplaceString,
				Site:      -1,
				Container: ci,
				Value:     CookTemplateRaw(tmpl.Quasis[0]),
			})
			continue
		}
		p.containerOps = append(p.containerOps, Instruction{
			Op:        OpReplaceTemplate,
			Site:      -1,
			Container: ci,
			Template:  tmpl,
		})
	}
	return nil
}

// foldTemplate splices the class names of scoped sites, and string literals
// next to them, into the surrounding fragments. It returns the rewritten
// template and the folded site indexes; a template without scoped sites comes
// back unchanged. So does a template with a site buried in another
// interpolation: re-rendering would print that site's original call, and its
// own edit would fall inside the container's.
func foldTemplate(tmpl Template, tokens map[int]string) (Template, []int) {
	var folded []int
	for _, expr := range tmpl.Exprs {
		if len(expr.Nested) > 0 {
			return tmpl, nil
		}
		if expr.Kind != ExprSite {
			continue
		}
		if _, ok := tokens[expr.Site]; ok {
			folded = append(folded, expr.Site)
		}
	}
	if len(folded) == 0 || len(tmpl.Quasis) != len(tmpl.Exprs)+1 {
		return tmpl, nil
	}

	out := Template{Quasis: []string{tmpl.Quasis[0]}}
	for i, expr := range tmpl.Exprs {
		literal, ok := "", false
		switch expr.Kind {
		case ExprSite:
			literal, ok = tokens[expr.Site]
		case ExprString:
			literal, ok = expr.Value, true
		}

		if ok {
			last := len(out.Quasis) - 1
			out.Quasis[last] += escapeTemplateRaw(literal) + tmpl.Quasis[i+1]
			continue
		}
		out.Exprs = append(out.Exprs, expr)
		out.Quasis = append(out.Quasis, tmpl.Quasis[i+1])
	}
	return out, folded
}
