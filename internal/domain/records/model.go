package records

import (
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Patient maps to the pacientes table. One row is one anamnesis session for
// one child. Tri-state answers are *bool: nil means "not informed" and is
// never the same as false.
type Patient struct {
	ID uuid.UUID `db:"id" json:"id"`

	// Dados pessoais
	NomeCrianca    string   `db:"nome_crianca" json:"nome_crianca"`
	DataNascimento *string  `db:"data_nascimento" json:"data_nascimento"`
	Idade          *float64 `db:"idade" json:"idade"`
	Cel            *string  `db:"cel" json:"cel"`
	Endereco       *string  `db:"endereco" json:"endereco"`
	Bairro         *string  `db:"bairro" json:"bairro"`
	CEP            *string  `db:"cep" json:"cep"`
	Cidade         *string  `db:"cidade" json:"cidade"`

	// Pais
	NomeMae      *string  `db:"nome_mae" json:"nome_mae"`
	IdadeMae     *float64 `db:"idade_mae" json:"idade_mae"`
	ProfissaoMae *string  `db:"profissao_mae" json:"profissao_mae"`
	NomePai      *string  `db:"nome_pai" json:"nome_pai"`
	IdadePai     *float64 `db:"idade_pai" json:"idade_pai"`
	ProfissaoPai *string  `db:"profissao_pai" json:"profissao_pai"`

	MotivoConsulta    *string `db:"motivo_consulta" json:"motivo_consulta"`
	AlteracaoGestacao *string `db:"alteracao_gestacao" json:"alteracao_gestacao"`

	// Necessidades especiais
	NecessidadeEspecial        *bool   `db:"necessidade_especial" json:"necessidade_especial"`
	QualNecessidade            *string `db:"qual_necessidade" json:"qual_necessidade"`
	ComprometimentoCoordenacao *bool   `db:"comprometimento_coordenacao" json:"comprometimento_coordenacao"`
	QualCoordenacao            *string `db:"qual_coordenacao" json:"qual_coordenacao"`
	ComprometimentoVisual      *bool   `db:"comprometimento_visual" json:"comprometimento_visual"`
	QualVisual                 *string `db:"qual_visual" json:"qual_visual"`
	ComprometimentoComunicacao *bool   `db:"comprometimento_comunicacao" json:"comprometimento_comunicacao"`
	QualComunicacao            *string `db:"qual_comunicacao" json:"qual_comunicacao"`
	ReacaoContrariado          *string `db:"reacao_contrariado" json:"reacao_contrariado"`
	ReacaoProfissionais        *string `db:"reacao_profissionais" json:"reacao_profissionais"`

	// Histórico médico
	SofreuCirurgia         *bool   `db:"sofreu_cirurgia" json:"sofreu_cirurgia"`
	QualCirurgia           *string `db:"qual_cirurgia" json:"qual_cirurgia"`
	AlteracoesSanguineas   *bool   `db:"alteracoes_sanguineas" json:"alteracoes_sanguineas"`
	ProblemasRespiratorios *bool   `db:"problemas_respiratorios" json:"problemas_respiratorios"`
	ProblemasHepaticos     *bool   `db:"problemas_hepaticos" json:"problemas_hepaticos"`
	Cardiopatias           *bool   `db:"cardiopatias" json:"cardiopatias"`
	ProblemasGastricos     *bool   `db:"problemas_gastricos" json:"problemas_gastricos"`
	AlergiasMedicamento    *string `db:"alergias_medicamento" json:"alergias_medicamento"`
	AlergiasAlimentar      *string `db:"alergias_alimentar" json:"alergias_alimentar"`
	AlergiasRespiratoria   *string `db:"alergias_respiratoria" json:"alergias_respiratoria"`
	TratamentosAtuais      *string `db:"tratamentos_atuais" json:"tratamentos_atuais"`

	// Acompanhamentos
	Fonoaudiologia  *bool   `db:"fonoaudiologia" json:"fonoaudiologia"`
	Fisioterapia    *bool   `db:"fisioterapia" json:"fisioterapia"`
	Psicologia      *bool   `db:"psicologia" json:"psicologia"`
	Psiquiatrico    *bool   `db:"psiquiatrico" json:"psiquiatrico"`
	PsiquiatricoTO  *bool   `db:"psiquiatrico_to" json:"psiquiatrico_to"`
	OutroTratamento *string `db:"outro_tratamento" json:"outro_tratamento"`
	PortadorIST     *string `db:"portador_ist" json:"portador_ist"`

	// Hábitos
	MamaPeito          *bool   `db:"mama_peito" json:"mama_peito"`
	MamouPeito         *bool   `db:"mamou_peito" json:"mamou_peito"`
	AteQuandoMamou     *string `db:"ate_quando_mamou" json:"ate_quando_mamou"`
	TomaMamadeira      *bool   `db:"toma_mamadeira" json:"toma_mamadeira"`
	TomouMamadeira     *bool   `db:"tomou_mamadeira" json:"tomou_mamadeira"`
	AteQuandoMamadeira *string `db:"ate_quando_mamadeira" json:"ate_quando_mamadeira"`
	EngasgaVomita      *string `db:"engasga_vomita" json:"engasga_vomita"`
	ChupaDedo          *string `db:"chupa_dedo" json:"chupa_dedo"`
	ChupaChupeta       *string `db:"chupa_chupeta" json:"chupa_chupeta"`
	OutrosHabitos      *string `db:"outros_habitos" json:"outros_habitos"`
	RangeDentes        *string `db:"range_dentes" json:"range_dentes"`

	// Histórico odontológico
	AnosPrimeiraConsulta *float64 `db:"anos_primeira_consulta" json:"anos_primeira_consulta"`
	TratamentoAnterior   *string  `db:"tratamento_anterior" json:"tratamento_anterior"`
	FoiDentista          *bool    `db:"foi_dentista" json:"foi_dentista"`
	QualDentista         *string  `db:"qual_dentista" json:"qual_dentista"`

	// Higiene bucal
	EscovaUsa          *string  `db:"escova_usa" json:"escova_usa"`
	CremeDental        *string  `db:"creme_dental" json:"creme_dental"`
	HigieneBucal       *string  `db:"higiene_bucal" json:"higiene_bucal"`
	VezesDiaHigiene    *float64 `db:"vezes_dia_higiene" json:"vezes_dia_higiene"`
	TomouAnestesia     *bool    `db:"tomou_anestesia" json:"tomou_anestesia"`
	GengivaSangra      *bool    `db:"gengiva_sangra" json:"gengiva_sangra"`
	ExtracoesDentarias *bool    `db:"extracoes_dentarias" json:"extracoes_dentarias"`
	EscovaLingua       *bool    `db:"escova_lingua" json:"escova_lingua"`
	UsaFioDental       *bool    `db:"usa_fio_dental" json:"usa_fio_dental"`

	AlimentacaoNotas      *string `db:"alimentacao_notas" json:"alimentacao_notas"`
	InformacoesAdicionais *string `db:"informacoes_adicionais" json:"informacoes_adicionais"`

	MapaDental []int `db:"mapa_dental" json:"mapa_dental"`

	ResponsavelNome        string `db:"responsavel_nome" json:"responsavel_nome"`
	InformacoesVerdadeiras bool   `db:"informacoes_verdadeiras" json:"informacoes_verdadeiras"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Consultation maps to the consultas table. PacienteID is set at creation
// and never nil.
type Consultation struct {
	ID              uuid.UUID `db:"id" json:"id"`
	PacienteID      uuid.UUID `db:"paciente_id" json:"paciente_id"`
	DataAtendimento string    `db:"data_atendimento" json:"data_atendimento"`
	Peso            *float64  `db:"peso" json:"peso"`
	Observacoes     *string   `db:"observacoes" json:"observacoes"`
	Procedimentos   *string   `db:"procedimentos" json:"procedimentos"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// patientFieldIndex maps a json/db name to the struct field index.
var patientFieldIndex = func() map[string]int {
	t := reflect.TypeOf(Patient{})
	m := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("json"); tag != "" {
			m[tag] = i
		}
	}
	return m
}()

// Value returns the value of the named field, dereferencing pointers.
// A nil pointer yields nil. The second result is false for unknown names.
func (p *Patient) Value(name string) (any, bool) {
	idx, ok := patientFieldIndex[name]
	if !ok {
		return nil, false
	}
	v := reflect.ValueOf(p).Elem().Field(idx)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, true
		}
		return v.Elem().Interface(), true
	}
	return v.Interface(), true
}

// TriState returns the named tri-state answer.
func (p *Patient) TriState(name string) *bool {
	idx, ok := patientFieldIndex[name]
	if !ok {
		return nil
	}
	b, _ := reflect.ValueOf(p).Elem().Field(idx).Interface().(*bool)
	return b
}

// Columns returns every catalog column of p in catalog order with its value,
// ready to be bound as query arguments.
func (p *Patient) Columns() ([]string, []any) {
	cols := make([]string, 0, len(PatientFields))
	args := make([]any, 0, len(PatientFields))
	rv := reflect.ValueOf(p).Elem()
	for _, f := range PatientFields {
		cols = append(cols, f.Name)
		args = append(args, rv.Field(patientFieldIndex[f.Name]).Interface())
	}
	return cols, args
}
