package domain

var NewSystemCodeGeneratorAt = newSystemCodeGenerator
