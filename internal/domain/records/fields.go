package records

// FieldKind says how a form value is typed and normalized.
type FieldKind int

const (
	KindText FieldKind = iota
	KindNumber
	KindDate
	KindTriState
	KindBool
	KindTeeth
)

func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindTriState:
		return "tristate"
	case KindBool:
		return "bool"
	case KindTeeth:
		return "teeth"
	}
	return "unknown"
}

// Field describes one anamnesis form field. Name is both the JSON key and
// the pacientes column.
type Field struct {
	Name      string
	Label     string
	Section   string
	Kind      FieldKind
	Required  bool
	LongText  bool
	DependsOn string // tri-state field that makes this elaboration meaningful
}

// Section titles, in form order.
const (
	SectionDadosPessoais  = "Dados Pessoais"
	SectionDadosPais      = "Dados dos Pais"
	SectionMotivo         = "Motivo da Consulta"
	SectionNecessidades   = "Necessidades Especiais"
	SectionHistoricoMed   = "Histórico Médico"
	SectionAcompanhamento = "Acompanhamentos"
	SectionHabitos        = "Hábitos"
	SectionHistoricoOdont = "Histórico Odontológico"
	SectionHigiene        = "Higiene Bucal"
	SectionAlimentacao    = "Alimentação e Outras Informações"
	SectionMapaDental     = "Mapa Dental"
	SectionResponsavel    = "Responsável"
)

var Sections = []string{
	SectionDadosPessoais,
	SectionDadosPais,
	SectionMotivo,
	SectionNecessidades,
	SectionHistoricoMed,
	SectionAcompanhamento,
	SectionHabitos,
	SectionHistoricoOdont,
	SectionHigiene,
	SectionAlimentacao,
	SectionMapaDental,
	SectionResponsavel,
}

// PatientFields is the anamnesis catalog in display order. System fields
// (id, created_at, updated_at) are not part of it.
var PatientFields = []Field{
	{Name: "nome_crianca", Label: "Nome da Criança", Section: SectionDadosPessoais, Kind: KindText, Required: true},
	{Name: "data_nascimento", Label: "Data de Nascimento", Section: SectionDadosPessoais, Kind: KindDate},
	{Name: "idade", Label: "Idade", Section: SectionDadosPessoais, Kind: KindNumber},
	{Name: "cel", Label: "Celular", Section: SectionDadosPessoais, Kind: KindText},
	{Name: "endereco", Label: "Endereço", Section: SectionDadosPessoais, Kind: KindText},
	{Name: "bairro", Label: "Bairro", Section: SectionDadosPessoais, Kind: KindText},
	{Name: "cep", Label: "CEP", Section: SectionDadosPessoais, Kind: KindText},
	{Name: "cidade", Label: "Cidade", Section: SectionDadosPessoais, Kind: KindText},

	{Name: "nome_mae", Label: "Nome da Mãe", Section: SectionDadosPais, Kind: KindText},
	{Name: "idade_mae", Label: "Idade da Mãe", Section: SectionDadosPais, Kind: KindNumber},
	{Name: "profissao_mae", Label: "Profissão da Mãe", Section: SectionDadosPais, Kind: KindText},
	{Name: "nome_pai", Label: "Nome do Pai", Section: SectionDadosPais, Kind: KindText},
	{Name: "idade_pai", Label: "Idade do Pai", Section: SectionDadosPais, Kind: KindNumber},
	{Name: "profissao_pai", Label: "Profissão do Pai", Section: SectionDadosPais, Kind: KindText},

	{Name: "motivo_consulta", Label: "Qual o motivo da consulta?", Section: SectionMotivo, Kind: KindText, LongText: true},
	{Name: "alteracao_gestacao", Label: "Mãe teve alguma alteração durante a gestação?", Section: SectionMotivo, Kind: KindText, LongText: true},

	{Name: "necessidade_especial", Label: "Possui necessidade especial?", Section: SectionNecessidades, Kind: KindTriState},
	{Name: "qual_necessidade", Label: "Qual necessidade?", Section: SectionNecessidades, Kind: KindText, DependsOn: "necessidade_especial"},
	{Name: "comprometimento_coordenacao", Label: "Possui comprometimento de coordenação motora?", Section: SectionNecessidades, Kind: KindTriState},
	{Name: "qual_coordenacao", Label: "Qual comprometimento motor?", Section: SectionNecessidades, Kind: KindText, DependsOn: "comprometimento_coordenacao"},
	{Name: "comprometimento_visual", Label: "Possui comprometimento visual?", Section: SectionNecessidades, Kind: KindTriState},
	{Name: "qual_visual", Label: "Qual comprometimento visual?", Section: SectionNecessidades, Kind: KindText, DependsOn: "comprometimento_visual"},
	{Name: "comprometimento_comunicacao", Label: "Possui comprometimento de comunicação?", Section: SectionNecessidades, Kind: KindTriState},
	{Name: "qual_comunicacao", Label: "Qual comprometimento de comunicação?", Section: SectionNecessidades, Kind: KindText, DependsOn: "comprometimento_comunicacao"},
	{Name: "reacao_contrariado", Label: "Como reage quando contrariado?", Section: SectionNecessidades, Kind: KindText},
	{Name: "reacao_profissionais", Label: "Como reage a profissionais de saúde?", Section: SectionNecessidades, Kind: KindText},

	{Name: "sofreu_cirurgia", Label: "Sofreu alguma cirurgia?", Section: SectionHistoricoMed, Kind: KindTriState},
	{Name: "qual_cirurgia", Label: "Qual cirurgia?", Section: SectionHistoricoMed, Kind: KindText, DependsOn: "sofreu_cirurgia"},
	{Name: "alteracoes_sanguineas", Label: "Alterações sanguíneas?", Section: SectionHistoricoMed, Kind: KindTriState},
	{Name: "problemas_respiratorios", Label: "Problemas respiratórios?", Section: SectionHistoricoMed, Kind: KindTriState},
	{Name: "problemas_hepaticos", Label: "Problemas hepáticos?", Section: SectionHistoricoMed, Kind: KindTriState},
	{Name: "cardiopatias", Label: "Cardiopatias?", Section: SectionHistoricoMed, Kind: KindTriState},
	{Name: "problemas_gastricos", Label: "Problemas gástricos?", Section: SectionHistoricoMed, Kind: KindTriState},
	{Name: "alergias_medicamento", Label: "Alergias a medicamentos", Section: SectionHistoricoMed, Kind: KindText},
	{Name: "alergias_alimentar", Label: "Alergias alimentares", Section: SectionHistoricoMed, Kind: KindText},
	{Name: "alergias_respiratoria", Label: "Alergias respiratórias", Section: SectionHistoricoMed, Kind: KindText},
	{Name: "tratamentos_atuais", Label: "Tratamentos atuais", Section: SectionHistoricoMed, Kind: KindText, LongText: true},

	{Name: "fonoaudiologia", Label: "Fonoaudiologia?", Section: SectionAcompanhamento, Kind: KindTriState},
	{Name: "fisioterapia", Label: "Fisioterapia?", Section: SectionAcompanhamento, Kind: KindTriState},
	{Name: "psicologia", Label: "Psicologia?", Section: SectionAcompanhamento, Kind: KindTriState},
	{Name: "psiquiatrico", Label: "Psiquiátrico?", Section: SectionAcompanhamento, Kind: KindTriState},
	{Name: "psiquiatrico_to", Label: "TO?", Section: SectionAcompanhamento, Kind: KindTriState},
	{Name: "outro_tratamento", Label: "Outro tratamento", Section: SectionAcompanhamento, Kind: KindText},
	{Name: "portador_ist", Label: "Portador de IST?", Section: SectionAcompanhamento, Kind: KindText},

	{Name: "mama_peito", Label: "Paciente mama no peito?", Section: SectionHabitos, Kind: KindTriState},
	{Name: "mamou_peito", Label: "Já mamou no peito?", Section: SectionHabitos, Kind: KindTriState},
	{Name: "ate_quando_mamou", Label: "Até quando mamou?", Section: SectionHabitos, Kind: KindText, DependsOn: "mamou_peito"},
	{Name: "toma_mamadeira", Label: "Paciente toma mamadeira?", Section: SectionHabitos, Kind: KindTriState},
	{Name: "tomou_mamadeira", Label: "Já tomou mamadeira?", Section: SectionHabitos, Kind: KindTriState},
	{Name: "ate_quando_mamadeira", Label: "Até quando tomou mamadeira?", Section: SectionHabitos, Kind: KindText, DependsOn: "tomou_mamadeira"},
	{Name: "engasga_vomita", Label: "Engasga ou vomita com facilidade?", Section: SectionHabitos, Kind: KindText},
	{Name: "chupa_dedo", Label: "Chupa o dedo?", Section: SectionHabitos, Kind: KindText},
	{Name: "chupa_chupeta", Label: "Chupa chupeta?", Section: SectionHabitos, Kind: KindText},
	{Name: "outros_habitos", Label: "Possui outros hábitos?", Section: SectionHabitos, Kind: KindText},
	{Name: "range_dentes", Label: "Range os dentes?", Section: SectionHabitos, Kind: KindText},

	{Name: "anos_primeira_consulta", Label: "Quantos anos na primeira consulta?", Section: SectionHistoricoOdont, Kind: KindNumber},
	{Name: "tratamento_anterior", Label: "Como foi o tratamento anterior?", Section: SectionHistoricoOdont, Kind: KindText},
	{Name: "foi_dentista", Label: "Já foi ao dentista?", Section: SectionHistoricoOdont, Kind: KindTriState},
	{Name: "qual_dentista", Label: "Qual dentista?", Section: SectionHistoricoOdont, Kind: KindText, DependsOn: "foi_dentista"},

	{Name: "escova_usa", Label: "Qual escova usa?", Section: SectionHigiene, Kind: KindText},
	{Name: "creme_dental", Label: "Qual creme dental usa?", Section: SectionHigiene, Kind: KindText},
	{Name: "higiene_bucal", Label: "Quem faz a higiene bucal?", Section: SectionHigiene, Kind: KindText},
	{Name: "vezes_dia_higiene", Label: "Quantas vezes ao dia?", Section: SectionHigiene, Kind: KindNumber},
	{Name: "tomou_anestesia", Label: "Já tomou anestesia?", Section: SectionHigiene, Kind: KindTriState},
	{Name: "gengiva_sangra", Label: "Gengiva sangra com facilidade?", Section: SectionHigiene, Kind: KindTriState},
	{Name: "extracoes_dentarias", Label: "Já realizou extrações dentárias?", Section: SectionHigiene, Kind: KindTriState},
	{Name: "escova_lingua", Label: "Escova a língua?", Section: SectionHigiene, Kind: KindTriState},
	{Name: "usa_fio_dental", Label: "Usa fio dental?", Section: SectionHigiene, Kind: KindTriState},

	{Name: "alimentacao_notas", Label: "Vamos falar sobre a alimentação do paciente", Section: SectionAlimentacao, Kind: KindText, LongText: true},
	{Name: "informacoes_adicionais", Label: "Alguma informação adicional não relatada?", Section: SectionAlimentacao, Kind: KindText, LongText: true},

	{Name: "mapa_dental", Label: "Dentes com problema", Section: SectionMapaDental, Kind: KindTeeth},

	{Name: "responsavel_nome", Label: "Nome do Responsável", Section: SectionResponsavel, Kind: KindText, Required: true},
	{Name: "informacoes_verdadeiras", Label: "Declaro que todas as informações prestadas são verdadeiras", Section: SectionResponsavel, Kind: KindBool},
}

var fieldsByName = func() map[string]Field {
	m := make(map[string]Field, len(PatientFields))
	for _, f := range PatientFields {
		m[f.Name] = f
	}
	return m
}()

// FieldByName looks a field up in the catalog.
func FieldByName(name string) (Field, bool) {
	f, ok := fieldsByName[name]
	return f, ok
}

// FieldsInSection returns the catalog entries of one section, in order.
func FieldsInSection(section string) []Field {
	var out []Field
	for _, f := range PatientFields {
		if f.Section == section {
			out = append(out, f)
		}
	}
	return out
}

// FieldsOfKind returns the names of every catalog field with the given kind.
func FieldsOfKind(kind FieldKind) []string {
	var out []string
	for _, f := range PatientFields {
		if f.Kind == kind {
			out = append(out, f.Name)
		}
	}
	return out
}
